package services

import (
	"time"

	portsrepo "github.com/sahayog/shg_management_app/internal/core/ports/repositories"
	portssvc "github.com/sahayog/shg_management_app/internal/core/ports/services"
)

// NewServiceContainer wires all application services from the repository
// provider and the auth settings.
func NewServiceContainer(repos portsrepo.RepositoryProvider, jwtSecret string, jwtExpiry time.Duration, jwtIssuer string) *portssvc.ServiceContainer {
	groupSvc := NewGroupService(repos.GroupRepo, repos.MemberRepo, repos.LoanRepo)

	return &portssvc.ServiceContainer{
		Auth:        NewAuthService(repos.UserRepo, jwtSecret, jwtExpiry, jwtIssuer),
		Member:      NewMemberService(repos.MemberRepo, groupSvc),
		Group:       groupSvc,
		Period:      NewPeriodService(repos.PeriodRepo, groupSvc),
		PeriodClose: NewPeriodCloseService(repos.PeriodRepo, repos.GroupRepo, groupSvc),
		Loan:        NewLoanService(repos.LoanRepo, groupSvc),
	}
}
