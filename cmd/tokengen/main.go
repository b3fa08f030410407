// Command tokengen mints access and refresh tokens for calling the API by
// hand. Tokens are signed with the development key unless -key is given.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"orbit/internal/access"
	jwttoken "orbit/internal/jwt_token"
	id "orbit/pkg/domain"
)

// devSigningKey is the server's JWT_SIGNING_KEY default.
const devSigningKey = "dev-secret-key-change-in-production"

const usage = `usage: tokengen <access|refresh> [flags]

  tokengen access                                  Admin of a fresh organization
  tokengen access -role Staff -tenant-id <uuid>    Staff of a known organization
  tokengen access -role SuperAdmin                 platform operator, no organization
  tokengen refresh -user-id <uuid> -json

Run "tokengen <command> -h" for the flags of a command.
`

var errUsage = errors.New("usage")

type minted struct {
	Kind      string `json:"type"`
	Token     string `json:"token"`
	ExpiresIn string `json:"expires_in"`
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id,omitempty"`
	Role      string `json:"role,omitempty"`
}

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	userID := fs.String("user-id", "", "user id; random when empty")
	key := fs.String("key", devSigningKey, "HMAC signing key")
	issuer := fs.String("issuer", "orbit", "iss claim, must match JWT_ISSUER")
	asJSON := fs.Bool("json", false, "print JSON instead of text")

	var (
		tenantID *string
		role     *string
		ttl      *time.Duration
	)
	switch args[0] {
	case "access":
		tenantID = fs.String("tenant-id", "", "organization id; random when empty, ignored for SuperAdmin")
		role = fs.String("role", string(access.RoleAdmin), "SuperAdmin, Owner, Admin or Staff")
		ttl = fs.Duration("ttl", time.Hour, "token lifetime")
	case "refresh":
		ttl = fs.Duration("ttl", 7*24*time.Hour, "token lifetime")
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	uid, err := userOrRandom(*userID)
	if err != nil {
		return err
	}
	svc := jwttoken.NewJWTService(*key, *issuer, *ttl, *ttl)
	out := minted{Kind: args[0] + "_token", ExpiresIn: ttl.String(), UserID: uid.String()}

	if role == nil {
		if out.Token, err = svc.GenerateRefreshToken(context.Background(), uid); err != nil {
			return err
		}
		return write(stdout, out, *asJSON)
	}

	r, err := access.ParseRole(*role)
	if err != nil {
		return fmt.Errorf("-role: %w", err)
	}
	var tid id.TenantID
	if r != access.RoleSuperAdmin {
		if tid, err = tenantOrRandom(*tenantID); err != nil {
			return err
		}
		out.TenantID = tid.String()
	}
	out.Role = string(r)
	if out.Token, err = svc.GenerateAccessToken(context.Background(), uid, string(r), tid); err != nil {
		return err
	}
	return write(stdout, out, *asJSON)
}

func userOrRandom(raw string) (id.UserID, error) {
	if raw == "" {
		return id.NewUserID(), nil
	}
	uid, err := id.ParseUserID(raw)
	if err != nil {
		return id.UserID{}, fmt.Errorf("-user-id: %w", err)
	}
	return uid, nil
}

func tenantOrRandom(raw string) (id.TenantID, error) {
	if raw == "" {
		return id.NewTenantID(), nil
	}
	tid, err := id.ParseTenantID(raw)
	if err != nil {
		return id.TenantID{}, fmt.Errorf("-tenant-id: %w", err)
	}
	return tid, nil
}

func write(w io.Writer, m minted, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "type\t%s\n", m.Kind)
	fmt.Fprintf(tw, "expires in\t%s\n", m.ExpiresIn)
	fmt.Fprintf(tw, "user\t%s\n", m.UserID)
	if m.Role != "" {
		fmt.Fprintf(tw, "role\t%s\n", m.Role)
	}
	if m.TenantID != "" {
		fmt.Fprintf(tw, "organization\t%s\n", m.TenantID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", m.Token)
	return err
}
