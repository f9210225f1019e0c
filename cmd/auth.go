package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/shelfsync/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin authenticates against a server with username and password.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	conn, err := a.auth.Login(ctx, cmd.String("server"), cmd.String("username"), cmd.String("password"), nil)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	r.writePlain("✓ Logged in to %s\n", conn.ServerURL)
	r.writePlain("Connection id: %s\n", conn.ID)
	return nil
}

// AuthOIDCBegin prints the SSO authorization URL and the PKCE verifier the
// completion step needs.
func (r *Runner) AuthOIDCBegin(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	serverURL := cmd.String("server")
	verifier := oauth2.GenerateVerifier()
	state := shared.GenerateID()
	url := a.auth.AuthURL(serverURL, state, verifier)

	r.writePlain("Open this URL in your browser:\n\n%s\n", url)
	r.writePlainln("Then finish with:")
	r.writePlain("shelfsync auth oidc complete --server %s --verifier %s --code <code>\n", serverURL, verifier)
	return nil
}

// AuthOIDCComplete exchanges the authorization code for tokens and stores
// the connection.
func (r *Runner) AuthOIDCComplete(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	conn, err := a.auth.LoginWithOIDC(ctx, cmd.String("server"), cmd.String("code"), cmd.String("verifier"), nil)
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}

	r.writePlain("✓ Logged in to %s\n", conn.ServerURL)
	r.writePlain("Connection id: %s\n", conn.ID)
	return nil
}

// AuthList lists stored connections, marking the active one.
func (r *Runner) AuthList(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	connections, err := a.connections.List()
	if err != nil {
		return err
	}

	activeID, _ := a.state.ActiveConnectionID()

	if len(connections) == 0 {
		r.writePlain("No stored connections. Run 'shelfsync auth login' first.\n")
		return nil
	}

	for _, conn := range connections {
		marker := " "
		if conn.ID == activeID {
			marker = "*"
		}
		r.writePlain("%s %s  %s\n", marker, conn.ID, conn.DisplayName())
	}
	return nil
}

// AuthSwitch makes a stored connection the active one.
func (r *Runner) AuthSwitch(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: connection id", shared.ErrMissingArgument)
	}

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.auth.SwitchToServer(id); err != nil {
		return err
	}

	r.writePlain("✓ Active connection is now %s\n", id)
	return nil
}

// AuthAlias sets a display alias on a stored connection.
func (r *Runner) AuthAlias(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	id := cmd.StringArg("id")
	alias := cmd.StringArg("alias")
	if id == "" || alias == "" {
		return fmt.Errorf("%w: connection id and alias", shared.ErrMissingArgument)
	}

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.auth.UpdateAlias(id, alias); err != nil {
		return err
	}

	r.writePlain("✓ Connection %s is now '%s'\n", id, alias)
	return nil
}

// AuthLogout removes a stored connection.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: connection id", shared.ErrMissingArgument)
	}

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.auth.Logout(id); err != nil {
		return err
	}

	r.writePlain("✓ Logged out of %s\n", id)
	return nil
}
