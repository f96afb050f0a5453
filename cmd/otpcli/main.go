// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// otpcli verifies a pending registration from the terminal. It drives the
// six-cell code entry interactively, or consumes a magic-link token
// directly with --token.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/vuportal/authportal/internal/otpentry"
)

var errRejected = errors.New("code rejected")

func main() {
	cmd := &cli.Command{
		Name:  "otpcli",
		Usage: "Verify a pending registration from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8080",
				Usage:   "Portal base URL",
				Sources: cli.EnvVars("PORTAL_SERVER"),
			},
			&cli.StringFlag{
				Name:  "email",
				Usage: "Email address the code was sent to",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "Magic-link token; skips interactive code entry",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(_ context.Context, cmd *cli.Command) error {
	server := cmd.String("server")

	if token := cmd.String("token"); token != "" {
		return verifyToken(server, token)
	}

	email := cmd.String("email")
	if email == "" {
		return errors.New("--email is required for interactive entry")
	}

	return runInteractive(server, email)
}

// runInteractive reads keystrokes in raw mode, feeds them into the entry
// machine and submits automatically once all six cells are filled.
func runInteractive(server, email string) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("interactive entry needs a terminal; use --token instead")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, oldState) }()

	m := otpentry.New()
	render(m, "")

	buf := make([]byte, 1)
	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			return err
		}

		switch b := buf[0]; b {
		case 3, 27: // Ctrl+C, Esc
			fmt.Print("\r\n")
			return errors.New("cancelled")
		case 8, 127: // Backspace, Del
			m.Backspace()
		default:
			m.Input(b)
		}
		render(m, "")

		code, ok := m.TrySubmit()
		if !ok {
			continue
		}

		render(m, "verifying...")
		err := verifyCode(server, email, code)
		switch {
		case err == nil:
			fmt.Print("\r\nEmail verified successfully\r\n")
			return nil
		case errors.Is(err, errRejected):
			render(m, "Invalid or expired code, try again")
			m.Reset()
		default:
			fmt.Print("\r\n")
			return err
		}
	}
}

func render(m *otpentry.Machine, status string) {
	fmt.Printf("\r\x1b[2KEnter code: %s  %s", m.Render('_'), status)
}

func verifyCode(server, email, code string) error {
	payload, err := json.Marshal(map[string]string{"email": email, "code": code})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(server+"/api/auth/verify", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	return decodeResult(resp)
}

func verifyToken(server, token string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(server + "/verify-email?token=" + url.QueryEscape(token))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := decodeResult(resp); err != nil {
		return err
	}
	fmt.Println("Email verified successfully")
	return nil
}

// decodeResult maps an API response to a result: 2xx is success, 400 with
// an error body is a rejected code, anything else is a hard failure.
func decodeResult(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)

	if resp.StatusCode == http.StatusBadRequest {
		return fmt.Errorf("%w: %s", errRejected, apiErr.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
}
