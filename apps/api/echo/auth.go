package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
// School pins the tenant the token was issued for; the role flags mirror the
// profiles attached to the account in that tenant.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	School       string   `json:"school,omitempty"`
	IsStaff      bool     `json:"is_staff,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	IsTeacher    bool     `json:"is_teacher,omitempty"`
	IsStudent    bool     `json:"is_student,omitempty"`
	IsParent     bool     `json:"is_parent,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

func GetUserClaims(conf *core.Config, usr user.User, sch tenant.School, roles []profile.Role, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  "Shule",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		School:       sch.Name,
		IsStaff:      usr.IsStaff,
	}
	for _, role := range roles {
		switch role {
		case profile.RoleAdmin:
			claims.IsAdmin = true
		case profile.RoleTeacher:
			claims.IsTeacher = true
		case profile.RoleStudent:
			claims.IsStudent = true
		case profile.RoleParent:
			claims.IsParent = true
		}
		claims.Roles = append(claims.Roles, string(role))
	}
	return claims
}

// authenticate verifies the credentials and builds the Claims for the user's
// own school. Email lookup is system-wide; role flags come from the profiles
// in that school's partition.
func authenticate(ctx context.Context, email, pwd string, deps ServerDeps) (*Claims, error) {
	usr, err := deps.UserSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if !usr.IsActive {
		return nil, errAccountDeactivated
	}

	var sch tenant.School
	var roles []profile.Role
	if usr.SchoolID != "" {
		if sch, err = deps.TenantSvc.GetByID(ctx, usr.SchoolID); err != nil {
			return nil, errors.Wrap(err, "finding user school")
		}
		if roles, err = deps.ProfileSvc.RolesFor(tenant.NewContext(ctx, sch), usr.ID); err != nil {
			return nil, errors.Wrap(err, "resolving user roles")
		}
	}

	if usr, err = deps.UserSvc.SetLastLogin(ctx, usr); err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return GetUserClaims(deps.Conf, usr, sch, roles), nil
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, deps ServerDeps, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := deps.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func refreshToken(ctx echo.Context, deps ServerDeps) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := getContextUser(ctx, deps, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(deps.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	reqCtx := ctx.Request().Context()
	var sch tenant.School
	var roles []profile.Role
	if usr.SchoolID != "" {
		if sch, err = deps.TenantSvc.GetByID(reqCtx, usr.SchoolID); err != nil {
			return "", errors.Wrap(err, "finding user school")
		}
		if roles, err = deps.ProfileSvc.RolesFor(tenant.NewContext(reqCtx, sch), usr.ID); err != nil {
			return "", errors.Wrap(err, "resolving user roles")
		}
	}

	newClaims := GetUserClaims(deps.Conf, usr, sch, roles, claims.OrigIssuedAt)
	token, err := GenerateToken(deps.Conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}
