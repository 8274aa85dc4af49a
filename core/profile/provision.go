package profile

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
)

// Parent auto-provisioning. Every student carries parent contact fields; when
// a student is created we guarantee a matching Parent account exists and is
// linked to them. The whole cascade is best-effort: a student must never fail
// to exist because their parent's account could not be set up.

const parentUsernamePrefix = "parent_"

// deriveParentUsername builds a parent username from the parent email's local
// part, capped at 15 characters.
func deriveParentUsername(parentEmail string) string {
	local := parentEmail
	if at := strings.Index(parentEmail, "@"); at >= 0 {
		local = parentEmail[:at]
	}
	if len(local) > 15 {
		local = local[:15]
	}
	return parentUsernamePrefix + local
}

// defaultParentPassword derives the initial parent password from the child's
// admission number.
func defaultParentPassword(admissionNumber string) string {
	return "Parent" + admissionNumber + "!"
}

// HandleStudentCreated gets or creates the Parent account for a new student
// and links the student as their child. Returns the parent's username when
// provisioning succeeded, "" otherwise. Errors are logged and swallowed.
func (svc *Service) HandleStudentCreated(ctx context.Context, st Student) string {
	if st.ParentEmail == "" {
		return ""
	}

	par, usr, created, err := svc.getOrCreateParent(ctx, st)
	if err != nil {
		svc.log.Error("parent provisioning failed for student "+st.ID, err)
		return ""
	}

	if err := svc.linkChild(ctx, par, st.ID); err != nil {
		svc.log.Error("linking parent "+par.ID+" to student "+st.ID, err)
		return usr.Username
	}

	if created {
		svc.users.SendCredentialsMail(usr, defaultParentPassword(st.AdmissionNumber))
	}
	return usr.Username
}

func (svc *Service) getOrCreateParent(ctx context.Context, st Student) (Parent, user.User, bool, error) {
	// reuse an existing account with this email; siblings share one parent
	usr, err := svc.users.GetByEmail(ctx, st.ParentEmail)
	switch errors.Cause(err) {
	case nil:
		par, err := svc.repo.GetParentByUserID(ctx, usr.ID)
		if err == nil {
			return par, usr, false, nil
		}
		if errors.Cause(err) != ErrNotFound {
			return Parent{}, user.User{}, false, err
		}
		// account exists but has no parent profile in this partition
		par, err = svc.repo.CreateParent(ctx, Parent{UserID: usr.ID, CreatedAt: time.Now().UTC()})
		if err != nil {
			return Parent{}, user.User{}, false, errors.Wrap(err, "creating parent profile")
		}
		return par, usr, false, nil

	case user.ErrNotFound:
		var schoolID string
		if sch, ok := tenant.FromContext(ctx); ok {
			schoolID = sch.ID
		}
		usr, err = svc.users.Create(ctx, user.NewUser{
			Username:  deriveParentUsername(st.ParentEmail),
			Email:     st.ParentEmail,
			Password:  defaultParentPassword(st.AdmissionNumber),
			FirstName: st.ParentName,
			SchoolID:  schoolID,
		})
		if err != nil {
			return Parent{}, user.User{}, false, errors.Wrap(err, "creating parent account")
		}
		par, err := svc.repo.CreateParent(ctx, Parent{UserID: usr.ID, CreatedAt: time.Now().UTC()})
		if err != nil {
			return Parent{}, user.User{}, false, errors.Wrap(err, "creating parent profile")
		}
		return par, usr, true, nil

	default:
		return Parent{}, user.User{}, false, err
	}
}

// linkChild attaches the student to the parent unless already linked.
func (svc *Service) linkChild(ctx context.Context, par Parent, studentID string) error {
	has, err := svc.repo.ParentHasChild(ctx, par.ID, studentID)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	return svc.repo.AddParentChild(ctx, par.ID, studentID)
}
