package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
	"todoclient/internal/apiclient"
)

var (
	loginEmail       string
	loginPassword    string
	registerUsername string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWhoami,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&loginEmail, "email", "", "Account email (prompted when omitted)")
		c.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when omitted)")
	}
	registerCmd.Flags().StringVar(&registerUsername, "username", "", "Display name")
}

func readCredentials(cmd *cobra.Command) (string, string, error) {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	email, err := prompt(in, out, "Email", loginEmail)
	if err != nil {
		return "", "", err
	}
	password, err := prompt(in, out, "Password", loginPassword)
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	email, password, err := readCredentials(cmd)
	if err != nil {
		return err
	}

	user, err := a.session.Login(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("login failed: %s", apiclient.Message(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", displayName(user))
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	email, password, err := readCredentials(cmd)
	if err != nil {
		return err
	}

	user, err := a.session.Register(cmd.Context(), registerUsername, email, password)
	if err != nil {
		return fmt.Errorf("registration failed: %s", apiclient.Message(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Account created, signed in as %s\n", displayName(user))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	a.session.Logout(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	user, err := a.authenticate(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %s\n", user.ID)
	fmt.Fprintf(out, "Email:    %s\n", user.Email)
	if user.Username != "" {
		fmt.Fprintf(out, "Username: %s\n", user.Username)
	}
	return nil
}
