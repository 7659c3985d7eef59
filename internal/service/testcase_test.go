package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	ierr "github.com/vidinfra/subqa/internal/errors"
	"github.com/vidinfra/subqa/internal/logger"
)

type CaseLoaderSuite struct {
	suite.Suite
	loader *CaseLoader
	dir    string
}

func TestCaseLoader(t *testing.T) {
	suite.Run(t, new(CaseLoaderSuite))
}

func (s *CaseLoaderSuite) SetupTest() {
	s.loader = NewCaseLoader(logger.NewNopLogger())
	s.dir = s.T().TempDir()
}

func (s *CaseLoaderSuite) writeFile(content string) string {
	path := filepath.Join(s.dir, "cases.csv")
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (s *CaseLoaderSuite) TestLoadParsesRows() {
	path := s.writeFile(`test_id,test_name,country,trial_status,user_email,action_1,param_1,action_2,param_2,action_3,param_3
TC001,trial purchase then cancel,us,active,,buy_premium,visa_success,cancel,,check_status,
TC002,direct purchase,jp,expired,fixed@test.local,buy_premium,,,
`)

	cases, err := s.loader.Load(path)
	s.Require().NoError(err)
	s.Require().Len(cases, 2)

	first := cases[0]
	s.Equal("TC001", first.ID)
	s.Equal("trial purchase then cancel", first.Name)
	s.Equal("us", first.Country)
	s.True(first.TrialEligible())
	s.Empty(first.UserEmail)
	s.Require().Len(first.Steps, 3)
	s.Equal(Step{ActionName: "buy_premium", Param: "visa_success"}, first.Steps[0])
	s.Equal(Step{ActionName: "cancel"}, first.Steps[1])
	s.Equal(Step{ActionName: "check_status"}, first.Steps[2])

	second := cases[1]
	s.Equal("jp", second.Country)
	s.False(second.TrialEligible())
	s.Equal("fixed@test.local", second.UserEmail)
	s.Require().Len(second.Steps, 1)
}

func (s *CaseLoaderSuite) TestTrialStatusSpellings() {
	for _, status := range []string{"active", "TRUE", "Yes", "y", " Active "} {
		s.True(TestCase{TrialStatus: status}.TrialEligible(), status)
	}
	for _, status := range []string{"", "expired", "no", "false", "inactive"} {
		s.False(TestCase{TrialStatus: status}.TrialEligible(), status)
	}
}

func (s *CaseLoaderSuite) TestRowsWithoutIDAreSkipped() {
	path := s.writeFile(`test_id,test_name,country,trial_status,user_email,action_1,param_1
TC001,real case,us,active,,buy_premium,
,orphan row,us,,,cancel,
TC002,another case,ca,,,cancel,
`)

	cases, err := s.loader.Load(path)
	s.Require().NoError(err)
	s.Require().Len(cases, 2)
	s.Equal("TC001", cases[0].ID)
	s.Equal("TC002", cases[1].ID)
}

func (s *CaseLoaderSuite) TestShortRows() {
	// Trailing action columns may be omitted entirely
	path := s.writeFile(`test_id,test_name,country,trial_status,user_email,action_1,param_1,action_2,param_2
TC001,short row,us,active,
`)

	cases, err := s.loader.Load(path)
	s.Require().NoError(err)
	s.Require().Len(cases, 1)
	s.Empty(cases[0].Steps)
}

func (s *CaseLoaderSuite) TestMissingFile() {
	_, err := s.loader.Load(filepath.Join(s.dir, "nope.csv"))
	s.Require().Error(err)
	s.True(ierr.IsConfiguration(err))
}

func (s *CaseLoaderSuite) TestHeaderOnlyFile() {
	path := s.writeFile("test_id,test_name,country,trial_status,user_email\n")
	_, err := s.loader.Load(path)
	s.Require().Error(err)
	s.True(ierr.IsConfiguration(err))
}

func (s *CaseLoaderSuite) TestMissingIDColumn() {
	path := s.writeFile("name,country\nfoo,us\n")
	_, err := s.loader.Load(path)
	s.Require().Error(err)
	s.True(ierr.IsConfiguration(err))
}

func (s *CaseLoaderSuite) TestLoadByID() {
	path := s.writeFile(`test_id,test_name,country,trial_status,user_email,action_1,param_1
TC001,first,us,active,,buy_premium,
TC002,second,ca,,,cancel,
`)

	tc, err := s.loader.LoadByID(path, "TC002")
	s.Require().NoError(err)
	s.Equal("second", tc.Name)

	_, err = s.loader.LoadByID(path, "TC999")
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
}
