package main

import (
	"errors"
	"fmt"

	"github.com/sandeepkv93/tasksync/internal/api"
	"github.com/sandeepkv93/tasksync/internal/model"
	"github.com/spf13/cobra"
)

func loginCmd(flags *globalFlags) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*flags, false)
			if err != nil {
				return err
			}
			defer a.close()

			pw, err := readPassword(password)
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd.Context())
			defer cancel()
			s, err := a.manager.Login(ctx, model.Credentials{Email: email, Password: pw})
			if err != nil {
				return authFailure("login", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (user #%d)\n", s.User.Email, s.User.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted; TASKSYNC_PASSWORD also works)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func registerCmd(flags *globalFlags) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in with it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*flags, false)
			if err != nil {
				return err
			}
			defer a.close()

			pw, err := readPassword(password)
			if err != nil {
				return err
			}
			reg := model.Registration{Name: name, Email: email, Password: pw}
			if err := reg.Validate(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd.Context())
			defer cancel()
			s, err := a.manager.Register(ctx, reg)
			if err != nil {
				return authFailure("register", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered and logged in as %s (user #%d)\n", s.User.Email, s.User.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password, 6 to 72 characters")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd(flags *globalFlags) *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*flags, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := a.context(cmd.Context())
			defer cancel()
			if !purge {
				if err := a.manager.Logout(ctx, nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			}
			// the user id keys the collections, so purging needs a live session
			s, err := a.resume(ctx)
			if err != nil {
				return err
			}
			if err := a.manager.Forget(ctx, s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged out; local categories and tags of user #%d removed\n", s.User.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "also delete this user's local categories and tags")
	return cmd
}

func whoamiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*flags, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := a.context(cmd.Context())
			defer cancel()
			s, err := a.resume(ctx)
			if err != nil {
				return err
			}
			defer s.End()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (user #%d) at %s\n", s.User.Email, s.User.ID, a.cfg.API.BaseURL)
			return nil
		},
	}
}

func authFailure(action string, err error) error {
	var rf *api.RequestFailed
	if errors.As(err, &rf) && rf.Message != "" {
		return fmt.Errorf("%s failed: %s", action, rf.Message)
	}
	return fmt.Errorf("%s failed: %w", action, err)
}
