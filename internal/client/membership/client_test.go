package membership

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vidinfra/subqa/internal/config"
	ierr "github.com/vidinfra/subqa/internal/errors"
	"github.com/vidinfra/subqa/internal/logger"
	"github.com/vidinfra/subqa/internal/testutil"
)

type MembershipClientSuite struct {
	suite.Suite
	http   *testutil.MockHTTPClient
	client *Client
}

func TestMembershipClient(t *testing.T) {
	suite.Run(t, new(MembershipClientSuite))
}

func (s *MembershipClientSuite) SetupTest() {
	s.http = testutil.NewMockHTTPClient()
	s.client = NewClient(s.http, config.MembershipConfig{
		BaseURL: "https://membership.test/api",
	}, logger.NewNopLogger())
}

func (s *MembershipClientSuite) login() {
	s.http.RegisterJSONResponse("/auth/login", AuthResponse{
		Success: true,
		Token:   "token-1",
		User:    map[string]any{"email": "qa@test.dev"},
	})
	_, err := s.client.Login(context.Background(), "qa@test.dev", "pw")
	s.Require().NoError(err)
}

func (s *MembershipClientSuite) TestAuthedCallRequiresLogin() {
	_, err := s.client.GetSubscriptions(context.Background())

	s.Error(err)
	s.True(ierr.IsValidation(err))
	s.Empty(s.http.Calls())
}

func (s *MembershipClientSuite) TestLedgerCallRequiresAdminLogin() {
	s.login()

	_, err := s.client.GetAdminSubscriptions(context.Background())

	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *MembershipClientSuite) TestLoginCachesSession() {
	s.login()

	token, err := s.client.AuthToken()
	s.NoError(err)
	s.Equal("token-1", token)
	s.Equal("qa@test.dev", s.client.UserEmail())
}

func (s *MembershipClientSuite) TestServerErrorIsHTTPClient() {
	s.login()
	s.http.RegisterResponse("/subscription", testutil.MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       []byte(`{"success":false}`),
	})

	_, err := s.client.GetSubscriptions(context.Background())

	s.Error(err)
	s.True(ierr.IsHTTPClient(err))
}

func (s *MembershipClientSuite) TestMalformedResponseIsHTTPClient() {
	s.login()
	s.http.RegisterResponse("/subscription", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte("<html>gateway timeout</html>"),
	})

	_, err := s.client.GetSubscriptions(context.Background())

	s.Error(err)
	s.True(ierr.IsHTTPClient(err))
}
