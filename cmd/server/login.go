package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/incal-auth/oauthmodel"
	"github.com/jrsteele09/incal-auth/rp"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type loginOptions struct {
	issuer       string
	clientID     string
	clientSecret string
	scopes       string
	listen       string
	callbackPath string
	tokenFile    string
	timeout      time.Duration
}

// newLoginCmd logs in as a relying party: it opens a local redirect listener,
// prints the authorize URL and stores the tokens once the browser returns.
func newLoginCmd() *cobra.Command {
	opts := loginOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to an INCAL server as a relying party and store the tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return login(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.issuer, "issuer", "http://localhost:8080", "authorization server base URI")
	cmd.Flags().StringVar(&opts.clientID, "client-id", "dashboard", "client to log in as; its redirect URIs must include the local callback")
	cmd.Flags().StringVar(&opts.clientSecret, "client-secret", "", "secret of a confidential client")
	cmd.Flags().StringVar(&opts.scopes, "scope", oauthmodel.ScopeUserInfoRead, "comma separated scopes to request")
	cmd.Flags().StringVar(&opts.listen, "listen", "127.0.0.1:8085", "address of the local redirect listener")
	cmd.Flags().StringVar(&opts.callbackPath, "callback-path", "/callback", "path of the local redirect listener")
	cmd.Flags().StringVar(&opts.tokenFile, "token-file", defaultTokenFile(), "where the tokens are stored")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "how long to wait for the browser")
	return cmd
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "incal-token.json"
	}
	return filepath.Join(dir, "incal", "token.json")
}

func login(cmd *cobra.Command, opts loginOptions) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	endpoint, err := rp.Discover(ctx, opts.issuer, nil)
	if err != nil {
		return err
	}

	receiver, err := rp.NewCodeReceiver(opts.listen, opts.callbackPath)
	if err != nil {
		return err
	}
	defer receiver.Close()

	client, err := rp.New(rp.Config{
		ClientID:     opts.clientID,
		ClientSecret: opts.clientSecret,
		RedirectURL:  receiver.RedirectURL(),
		Scopes:       oauthmodel.ParseScopes(opts.scopes),
		Endpoint:     endpoint,
		APIBaseURL:   opts.issuer,
	}, rp.WithStorage(rp.NewFileStorage(opts.tokenFile)))
	if err != nil {
		return err
	}

	attempt, err := client.Begin()
	if err != nil {
		return err
	}
	printf(cmd, "Open this URL in your browser to log in:\n\n  %s\n\n", attempt.URL)

	callback, err := receiver.Wait(ctx)
	if err != nil {
		return errors.Wrap(err, "waiting for the authorization redirect")
	}
	bundle, err := client.Complete(ctx, attempt, callback.State, callback.Code)
	if err != nil {
		return err
	}
	printf(cmd, "Logged in. Tokens stored in %s (access token expires %s)\n", opts.tokenFile, bundle.ExpiresAt.Format(time.RFC1123))

	result, err := client.Get(ctx, "/api/user")
	if err != nil {
		return err
	}
	if result.Status != rp.StatusSuccess {
		printf(cmd, "Could not read the user: %s %s\n", result.Code, result.Description)
		return nil
	}
	var user struct {
		Email     string `json:"email"`
		FirstName string `json:"firstname"`
		LastName  string `json:"lastname"`
	}
	if err := json.Unmarshal(result.Body, &user); err != nil {
		return errors.Wrap(err, "decoding user")
	}
	printf(cmd, "Hello %s %s <%s>\n", user.FirstName, user.LastName, user.Email)
	return nil
}
