package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	authdomain "transapp-auth/internal/auth/domain"
	authservice "transapp-auth/internal/auth/service"
	identitydomain "transapp-auth/internal/identity/domain"
	"transapp-auth/internal/security"
)

type cli struct {
	svc *authservice.Service
	box *security.Box
	out io.Writer
}

type command func(ctx context.Context, c *cli, args []string) (authdomain.Result, error)

var commands = map[string]command{
	"join":             cmdJoin,
	"login":            cmdLogin,
	"login-token":      cmdLoginToken,
	"logout":           cmdLogout,
	"remove-device":    cmdRemoveDevice,
	"set-password":     cmdSetPassword,
	"reset-password":   cmdResetPassword,
	"push":             cmdPush,
	"profile":          cmdProfile,
	"cancel":           cmdCancel,
	"feature":          cmdFeature,
	"overview":         cmdOverview,
	"set-device-limit": cmdSetDeviceLimit,
	"car-no":           cmdCarNo,
	"activate":         cmdActivate,
	"deactivate":       cmdDeactivate,
	"devices":          cmdDevices,
	"audit":            cmdAudit,
	"encrypt":          cmdEncrypt,
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// run executes args[0] and prints the outcome. Exit code 0 on success, 1 on a
// non-success outcome, 2 on bad usage.
func run(ctx context.Context, c *cli, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "commands:", commandNames())
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(c.out, "unknown command %q; commands: %s\n", args[0], commandNames())
		return 2
	}
	res, err := cmd(ctx, c, args[1:])
	if err != nil {
		fmt.Fprintf(c.out, "%s: %v\n", args[0], err)
		return 2
	}
	printResult(c.out, res)
	if !res.OK() {
		return 1
	}
	return 0
}

func printResult(w io.Writer, res authdomain.Result) {
	fmt.Fprintf(w, "code: %s (%d, http %d)\n", res.Code, int(res.Code), res.Code.HTTPStatus())
	if res.IdentityToken != "" {
		fmt.Fprintf(w, "identity_token: %s\n", res.IdentityToken)
	}
	if res.SessionToken != "" {
		fmt.Fprintf(w, "session_token: %s\n", res.SessionToken)
	}
	if res.OK() && res.Role != 0 {
		fmt.Fprintf(w, "role: %d\n", res.Role)
	}
	if res.Detail != "" {
		fmt.Fprintf(w, "detail: %s\n", res.Detail)
	}
}

var errUsage = errors.New("missing required flag")

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func deviceFlags(fs *flag.FlagSet) *authservice.DeviceInfo {
	d := &authservice.DeviceInfo{}
	fs.StringVar(&d.Name, "device-name", "", "device display name")
	fs.StringVar(&d.DeviceID, "device-id", "", "raw client device identifier")
	fs.StringVar(&d.PushAddress, "push", "", "push notification address")
	return d
}

func require(values ...string) error {
	for _, v := range values {
		if v == "" {
			return errUsage
		}
	}
	return nil
}

func (c *cli) seal(values ...string) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		ct, err := c.box.Encrypt(v)
		if err != nil {
			return nil, err
		}
		out[i] = ct
	}
	return out, nil
}

func cmdJoin(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	fs := newFlagSet("join")
	phone := fs.String("phone", "", "external identifier")
	password := fs.String("password", "", "password")
	role := fs.String("role", "", "owner_driver or partner")
	var profile identitydomain.Profile
	fs.StringVar(&profile.Name, "name", "", "profile name")
	fs.StringVar(&profile.Email, "email", "", "profile email")
	fs.StringVar(&profile.LicenseNo, "license-no", "", "driver license number")
	fs.StringVar(&profile.CarNo, "car-no", "", "car number")
	d := deviceFlags(fs)
	if err := fs.Parse(args); err != nil {
		return authdomain.Result{}, err
	}
	if err := require(*phone, *password, *role); err != nil {
		return authdomain.Result{}, err
	}
	ct, err := c.seal(*phone, *password)
	if err != nil {
		return authdomain.Result{}, err
	}
	return c.svc.Join(ctx, authservice.JoinRequest{
		IdentityCiphertext: ct[0],
		PasswordCiphertext: ct[1],
		Role:               *role,
		Device:             *d,
		Profile:            profile,
	}), nil
}

func cmdLogin(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	fs := newFlagSet("login")
	phone := fs.String("phone", "", "external identifier")
	password := fs.String("password", "", "password")
	d := deviceFlags(fs)
	if err := fs.Parse(args); err != nil {
		return authdomain.Result{}, err
	}
	if err := require(*phone, *password); err != nil {
		return authdomain.Result{}, err
	}
	ct, err := c.seal(*phone, *password)
	if err != nil {
		return authdomain.Result{}, err
	}
	return c.svc.Login(ctx, authservice.LoginRequest{IdentityCiphertext: ct[0], PasswordCiphertext: ct[1], Device: *d}), nil
}

func cmdLoginToken(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	fs := newFlagSet("login-token")
	token := fs.String("token", "", "identity token")
	d := deviceFlags(fs)
	if err := fs.Parse(args); err != nil {
		return authdomain.Result{}, err
	}
	if err := require(*token); err != nil {
		return authdomain.Result{}, err
	}
	return c.svc.LoginByIdentityToken(ctx, *token, *d), nil
}

// sessionCommand parses -session plus any extra flags registered by setup.
func sessionCommand(name string, args []string, setup func(fs *flag.FlagSet)) (string, error) {
	fs := newFlagSet(name)
	session := fs.String("session", "", "session token")
	if setup != nil {
		setup(fs)
	}
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return *session, require(*session)
}

func cmdLogout(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	session, err := sessionCommand("logout", args, nil)
	if err != nil {
		return authdomain.Result{}, err
	}
	return c.svc.Logout(ctx, session), nil
}

func cmdRemoveDevice(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	var d *authservice.DeviceInfo
	session, err := sessionCommand("remove-device", args, func(fs *flag.FlagSet) { d = deviceFlags(fs) })
	if err != nil {
		return authdomain.Result{}, err
	}
	return c.svc.RemoveDevice(ctx, session, *d), nil
}

func cmdSetPassword(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	var password *string
	session, err := sessionCommand("set-password", args, func(fs *flag.FlagSet) {
		password = fs.String("password", "", "new password")
	})
	if err != nil {
		return authdomain.Result{}, err
	}
	ct, err := c.seal(*password)
	if err != nil {
		return authdomain.Result{}, err
	}
	return c.svc.SetPassword(ctx, session, ct[0]), nil
}

func cmdResetPassword(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	fs := newFlagSet("reset-password")
	phone := fs.String("phone", "", "external identifier")
	password := fs.String("password", "", "new password")
	if err := fs.Parse(args); err != nil {
		return authdomain.Result{}, err
	}
	if err := require(*phone); err != nil {
		return authdomain.Result{}, err
	}
	ct, err := c.seal(*phone, *password)
	if err != nil {
		return authdomain.Result{}, err
	}
	return c.svc.SetPasswordByIdentity(ctx, ct[0], ct[1]), nil
}

func cmdPush(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	var d *authservice.DeviceInfo
	session, err := sessionCommand("push", args, func(fs *flag.FlagSet) { d = deviceFlags(fs) })
	if err != nil {
		return authdomain.Result{}, err
	}
	if d.PushAddress != "" {
		return c.svc.SetPushAddress(ctx, session, *d), nil
	}
	push, res := c.svc.GetPushAddress(ctx, session, *d)
	if res.OK() {
		fmt.Fprintf(c.out, "push: %s\n", push)
	}
	return res, nil
}

func cmdProfile(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	var update identitydomain.Profile
	session, err := sessionCommand("profile", args, func(fs *flag.FlagSet) {
		fs.StringVar(&update.Name, "name", "", "new name")
		fs.StringVar(&update.Email, "email", "", "new email")
		fs.StringVar(&update.Nickname, "nickname", "", "new nickname")
		fs.StringVar(&update.CarNo, "car-no", "", "new car number")
		fs.StringVar(&update.CompanyName, "company", "", "new company name")
	})
	if err != nil {
		return authdomain.Result{}, err
	}
	if update != (identitydomain.Profile{}) {
		if res := c.svc.UpdateProfile(ctx, session, update); !res.OK() {
			return res, nil
		}
	}
	p, res := c.svc.GetProfile(ctx, session)
	if res.OK() {
		fmt.Fprintf(c.out, "name: %s\nemail: %s\nnickname: %s\ncar_no: %s\ncompany: %s\n",
			p.Name, p.Email, p.Nickname, p.CarNo, p.CompanyName)
	}
	return res, nil
}

func cmdCancel(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	session, err := sessionCommand("cancel", args, nil)
	if err != nil {
		return authdomain.Result{}, err
	}
	return c.svc.CancelIdentity(ctx, session), nil
}

func cmdFeature(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	var permission *string
	session, err := sessionCommand("feature", args, func(fs *flag.FlagSet) {
		permission = fs.String("permission", "", "permission name")
	})
	if err != nil {
		return authdomain.Result{}, err
	}
	return c.svc.IsFeatureAllowed(ctx, session, *permission), nil
}

func cmdOverview(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	session, err := sessionCommand("overview", args, nil)
	if err != nil {
		return authdomain.Result{}, err
	}
	ov, res := c.svc.Overview(ctx, session)
	if res.OK() {
		fmt.Fprintf(c.out, "external_id: %s\npermissions: %s\ncar_no: %s%s\nfilled_required: %t\n",
			ov.ExternalID, strings.Join(ov.Permissions, ","), ov.Prefix, ov.CarNo, ov.FilledRequired)
	}
	return res, nil
}

func cmdSetDeviceLimit(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	fs := newFlagSet("set-device-limit")
	limit := fs.Int("limit", -1, "devices allowed per identity")
	if err := fs.Parse(args); err != nil {
		return authdomain.Result{}, err
	}
	return c.svc.SetDeviceLimit(ctx, *limit), nil
}

func cmdCarNo(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	fs := newFlagSet("car-no")
	session := fs.String("session", "", "session token of the caller, if joined")
	carNo := fs.String("car-no", "", "car number to check")
	if err := fs.Parse(args); err != nil {
		return authdomain.Result{}, err
	}
	if err := require(*carNo); err != nil {
		return authdomain.Result{}, err
	}
	return c.svc.IsUniqueCarNo(ctx, *session, *carNo), nil
}

func cmdActivate(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	return setActive(ctx, c, "activate", args, true)
}

func cmdDeactivate(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	return setActive(ctx, c, "deactivate", args, false)
}

func setActive(ctx context.Context, c *cli, name string, args []string, active bool) (authdomain.Result, error) {
	fs := newFlagSet(name)
	phone := fs.String("phone", "", "external identifier")
	if err := fs.Parse(args); err != nil {
		return authdomain.Result{}, err
	}
	if err := require(*phone); err != nil {
		return authdomain.Result{}, err
	}
	return c.svc.SetIdentityActive(ctx, *phone, active), nil
}

func cmdDevices(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	session, err := sessionCommand("devices", args, nil)
	if err != nil {
		return authdomain.Result{}, err
	}
	devices, res := c.svc.ListDevices(ctx, session)
	for _, d := range devices {
		fmt.Fprintf(c.out, "device: %s %s push=%s updated=%s\n", d.ID, d.Name, d.PushAddress, d.UpdatedAt.Format(time.RFC3339))
	}
	return res, nil
}

func cmdAudit(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	fs := newFlagSet("audit")
	phone := fs.String("phone", "", "external identifier")
	limit := fs.Int("limit", 20, "entries to show, newest first")
	if err := fs.Parse(args); err != nil {
		return authdomain.Result{}, err
	}
	if err := require(*phone); err != nil {
		return authdomain.Result{}, err
	}
	logs, res := c.svc.AuditTrail(ctx, *phone, int32(*limit))
	for _, l := range logs {
		fmt.Fprintf(c.out, "audit: %s %s %s %s\n", l.CreatedAt.Format(time.RFC3339), l.Action, l.Resource, l.Metadata)
	}
	return res, nil
}

func cmdEncrypt(ctx context.Context, c *cli, args []string) (authdomain.Result, error) {
	fs := newFlagSet("encrypt")
	value := fs.String("value", "", "plaintext to seal")
	if err := fs.Parse(args); err != nil {
		return authdomain.Result{}, err
	}
	ct, err := c.seal(*value)
	if err != nil {
		return authdomain.Result{}, err
	}
	fmt.Fprintf(c.out, "ciphertext: %s\n", ct[0])
	return authdomain.Result{Code: authdomain.CodeSuccess}, nil
}
