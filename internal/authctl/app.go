// Package authctl implements the operator CLI: each sub-command runs one
// auth operation against the configured database and prints the result as
// JSON.
package authctl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dmitrijs2005/humanizone/internal/common"
	"github.com/dmitrijs2005/humanizone/internal/server/models"
	"github.com/dmitrijs2005/humanizone/internal/server/services"
)

// Service is the part of services.AuthService the CLI drives.
type Service interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.RegistrationResult, error)
	Login(ctx context.Context, email, password string) (*services.SessionResult, error)
	SocialLogin(ctx context.Context, email string, provider models.Provider) (*services.SessionResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.SessionResult, error)
	Recertify(ctx context.Context, userID string, patch models.AttributePatch) error
	CheckEmail(ctx context.Context, email string) (bool, error)
}

var ErrUsage = errors.New("usage error")

const usage = `usage: authctl [config flags] <command> [args]

commands:
  register <email> [essential=true] [customized=true] [marketing=true]
  login <email>
  social-login <email> <provider>
  refresh <refresh-token>
  recertify <user-id> [name=...] [phone=...] [birth=...]
  check-email <email>

passwords are read from the terminal without echo, or from stdin when piped
`

type App struct {
	svc    Service
	reader *bufio.Reader
	fd     int
	out    io.Writer
}

// NewApp builds an App reading input from in (fd is its descriptor, used to
// detect a terminal) and writing results to out.
func NewApp(svc Service, in io.Reader, fd int, out io.Writer) *App {
	return &App{svc: svc, reader: bufio.NewReader(in), fd: fd, out: out}
}

// Run executes the command in args[0]. Service errors are returned as is;
// their message is the stable error code.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "social-login":
		return a.socialLogin(ctx, rest)
	case "refresh":
		return a.refresh(ctx, rest)
	case "recertify":
		return a.recertify(ctx, rest)
	case "check-email":
		return a.checkEmail(ctx, rest)
	case "help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) register(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: register <email> [essential=true] [customized=true] [marketing=true]", ErrUsage)
	}
	fields, err := ParseAssignments(args[1:], "essential", "customized", "marketing")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	agreements, err := parseAgreements(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	pw, err := GetPassword(a.reader, a.fd, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	res, err := a.svc.Register(ctx, services.RegisterInput{Email: args[0], Password: string(pw), Agreements: agreements})
	if err != nil {
		return err
	}
	return a.print(map[string]string{"userId": res.UserID, "message": res.Message})
}

func (a *App) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: login <email>", ErrUsage)
	}

	pw, err := GetPassword(a.reader, a.fd, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	res, err := a.svc.Login(ctx, args[0], string(pw))
	if err != nil {
		return err
	}
	return a.printSession(res)
}

func (a *App) socialLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: social-login <email> <provider>", ErrUsage)
	}
	provider, err := models.ParseProvider(args[1])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	res, err := a.svc.SocialLogin(ctx, args[0], provider)
	if err != nil {
		return err
	}
	return a.printSession(res)
}

func (a *App) refresh(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: refresh <refresh-token>", ErrUsage)
	}

	res, err := a.svc.Refresh(ctx, args[0])
	if err != nil {
		return err
	}
	return a.printSession(res)
}

func (a *App) recertify(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: recertify <user-id> [name=...] [phone=...] [birth=...]", ErrUsage)
	}
	fields, err := ParseAssignments(args[1:], "name", "phone", "birth")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	var patch models.AttributePatch
	if v, ok := fields["name"]; ok {
		patch.Name = &v
	}
	if v, ok := fields["phone"]; ok {
		patch.Phone = &v
	}
	if v, ok := fields["birth"]; ok {
		patch.Birth = &v
	}

	if err := a.svc.Recertify(ctx, args[0], patch); err != nil {
		return err
	}
	return a.print(map[string]string{"message": common.SuccessMessage})
}

func (a *App) checkEmail(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: check-email <email>", ErrUsage)
	}

	exists, err := a.svc.CheckEmail(ctx, args[0])
	if err != nil {
		return err
	}
	return a.print(map[string]bool{"exists": exists})
}

func (a *App) printSession(res *services.SessionResult) error {
	return a.print(struct {
		AccessToken  string          `json:"accessToken"`
		RefreshToken string          `json:"refreshToken"`
		UserInfo     models.UserInfo `json:"userInfo"`
	}{res.AccessToken, res.RefreshToken, res.User})
}

func (a *App) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAgreements(fields map[string]string) (models.Agreements, error) {
	var ag models.Agreements
	for name, target := range map[string]*bool{
		"essential":  &ag.Essential,
		"customized": &ag.CustomizedService,
		"marketing":  &ag.Marketing,
	} {
		v, ok := fields[name]
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ag, fmt.Errorf("%s: %w", name, err)
		}
		*target = b
	}
	return ag, nil
}
