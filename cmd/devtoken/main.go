// Command devtoken mints an HS512 access token for local testing. Secret,
// issuer and audiences come from the service config unless given as flags.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/clock"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/jwt"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/uid"
	"github.com/Frankpesta/cds-attendance-sub001/internal/shared/constant"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("devtoken", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "./config/config.yaml", "service config file, empty to skip")
	userID := fs.Int64("user", 1, "user id")
	role := fs.String("role", constant.RoleAdmin, "member, admin or super_admin")
	group := fs.Int64("group", 0, "group id the caller is bound to, 0 for none")
	secret := fs.String("secret", "", "HS512 secret, overrides jwt.secret")
	issuer := fs.String("issuer", "", "overrides jwt.issuer")
	audience := fs.String("audience", "", "comma separated, overrides jwt.audiences")
	ttl := fs.Duration("ttl", 8*time.Hour, "token lifetime")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	jcfg := jwt.Config{TTL: *ttl, Clock: clock.New(), UUID: uid.NewUUID()}
	if *cfgPath != "" {
		cfg, err := config.NewViper(*cfgPath)
		if err != nil {
			fmt.Fprintln(stderr, "load config:", err)
			return 1
		}
		defer cfg.Close()
		jcfg.Secret = []byte(cfg.GetString("jwt.secret"))
		jcfg.Issuer = cfg.GetString("jwt.issuer")
		jcfg.Audiences = cfg.GetArray("jwt.audiences")
	}
	if *secret != "" {
		jcfg.Secret = []byte(*secret)
	}
	if *issuer != "" {
		jcfg.Issuer = *issuer
	}
	if *audience != "" {
		jcfg.Audiences = lo.Compact(lo.Map(strings.Split(*audience, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		}))
	}

	switch *role {
	case constant.RoleMember, constant.RoleAdmin, constant.RoleSuperAdmin:
	default:
		fmt.Fprintf(stderr, "unknown role %q\n", *role)
		return 2
	}

	signer, err := jwt.NewHS512(jcfg)
	if err != nil {
		fmt.Fprintln(stderr, "init signer:", err)
		return 1
	}

	token, err := signer.Generate(jwt.Subject{UserID: *userID, Role: *role, GroupID: *group})
	if err != nil {
		fmt.Fprintln(stderr, "sign token:", err)
		return 1
	}

	fmt.Fprintln(stdout, token)
	return 0
}
