package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omelentjeff/product-management-app/internal/model"
)

func (a *app) loginCmd() *cobra.Command {
	var user, pass string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.sess.Authenticate(cmd.Context(), user, pass); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "ok")
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "username", "u", "", "username")
	cmd.Flags().StringVarP(&pass, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var user, pass, role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.sess.Register(cmd.Context(), user, pass, role); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "ok")
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "username", "u", "", "username")
	cmd.Flags().StringVarP(&pass, "password", "p", "", "password")
	cmd.Flags().StringVar(&role, "role", model.RoleUser, "account role (user or admin)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := a.sess.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "ok")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			id := a.sess.Current()
			if !id.Authenticated() {
				return errors.New("not logged in")
			}
			printJSON(a.out, struct {
				Username string `json:"username"`
				Role     string `json:"role"`
				Admin    bool   `json:"admin"`
			}{id.Username, id.Role, model.IsAdmin(id.Role)})
			return nil
		},
	}
}
