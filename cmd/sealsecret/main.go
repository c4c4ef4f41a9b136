// Command sealsecret encrypts the broker secret for storage at rest. The
// output file is what alpaca.encrypted_secret_path points at.
//
//	sealsecret -out alpaca.enc            # reads secret and password from stdin
//	SEALSECRET_PASSWORD=... sealsecret -out alpaca.enc -secret-env ALPACA_SECRET
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alanyoungcy/congressbot/internal/crypto"
)

func main() {
	out := flag.String("out", "alpaca.enc", "path of the sealed secret file")
	secretEnv := flag.String("secret-env", "", "read the secret from this environment variable instead of stdin")
	verify := flag.Bool("verify", false, "open an existing sealed file instead of writing one")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(*out, *secretEnv, *verify); err != nil {
		logger.Error("sealsecret failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(out, secretEnv string, verify bool) error {
	in := bufio.NewReader(os.Stdin)

	password := os.Getenv("SEALSECRET_PASSWORD")
	if password == "" {
		var err error
		if password, err = prompt(in, "password: "); err != nil {
			return err
		}
	}

	if verify {
		data, err := os.ReadFile(out)
		if err != nil {
			return fmt.Errorf("read %s: %w", out, err)
		}
		secret, err := crypto.OpenSecret(data, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "ok: %s opens (%d characters)\n", out, len(secret))
		return nil
	}

	var secret string
	if secretEnv != "" {
		secret = os.Getenv(secretEnv)
		if secret == "" {
			return fmt.Errorf("environment variable %s is empty", secretEnv)
		}
	} else {
		var err error
		if secret, err = prompt(in, "secret: "); err != nil {
			return err
		}
	}

	sealed, err := crypto.SealSecret(secret, password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, sealed, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", out)
	return nil
}

func prompt(in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New(strings.TrimSuffix(label, ": ") + " must not be empty")
	}
	return line, nil
}
