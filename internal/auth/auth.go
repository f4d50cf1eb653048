// Package auth resolves the Gemini API key and checks it against the service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

const (
	credentialDir  = ".toon-nation"
	credentialFile = "credentials.gpg"
)

// ErrNoAPIKey is returned when no source yields a key.
var ErrNoAPIKey = errors.New("API key not found. Set GEMINI_API_KEY, TOON_SSM_API_KEY_PARAM, or store it in ~/.toon-nation/credentials.gpg")

// ParameterGetter is the slice of the SSM client used to read the key.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Source describes the optional remote location of the key.
type Source struct {
	SSM      ParameterGetter
	SSMParam string
}

// GetAPIKey retrieves the Gemini API key from available sources.
// Priority order:
//  1. GEMINI_API_KEY environment variable
//  2. SSM Parameter Store, when src names a parameter and a client
//  3. GPG-encrypted file at ~/.toon-nation/credentials.gpg
func GetAPIKey(ctx context.Context, src Source) (string, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		log.Debug().Msg("Using API key from environment variable")
		return key, nil
	}

	if src.SSM != nil && src.SSMParam != "" {
		key, err := getFromSSM(ctx, src.SSM, src.SSMParam)
		if err == nil && key != "" {
			return key, nil
		}
		log.Warn().Err(err).Str("param", src.SSMParam).Msg("Could not read API key from SSM, trying GPG")
	}

	key, err := getFromGPG()
	if err == nil && key != "" {
		log.Debug().Msg("Using API key from GPG encrypted file")
		return key, nil
	}

	log.Error().Err(err).Msg("Failed to retrieve API key")
	return "", ErrNoAPIKey
}

func getFromSSM(ctx context.Context, client ParameterGetter, param string) (string, error) {
	start := time.Now()
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(param),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("SSM GetParameter %s: %w", param, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("SSM parameter %s has no value", param)
	}
	log.Debug().Str("param", param).Dur("elapsed", time.Since(start)).Msg("Gemini API key loaded from SSM")
	return strings.TrimSpace(*out.Parameter.Value), nil
}

// getFromGPG decrypts the API key from the GPG-encrypted credentials file.
func getFromGPG() (string, error) {
	credPath, err := getCredentialPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(credPath); os.IsNotExist(err) {
		return "", fmt.Errorf("GPG credentials file not found at %s", credPath)
	}

	log.Debug().Str("file", credPath).Msg("Decrypting GPG credentials")

	args := []string{"--decrypt", "--quiet"}

	if passphrasePath, err := getPassphrasePath(); err == nil {
		if ok, reason := passphraseUsable(passphrasePath); ok {
			log.Debug().Str("passphrase_file", passphrasePath).Msg("Using passphrase file for GPG decryption")
			args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", passphrasePath)
		} else if reason != "" {
			log.Warn().Str("passphrase_file", passphrasePath).Str("reason", reason).Msg("Skipping passphrase file")
		}
	}

	args = append(args, credPath)
	output, err := exec.Command("gpg", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("GPG decryption failed: %s", string(exitErr.Stderr))
		}
		return "", fmt.Errorf("GPG decryption failed: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

// passphraseUsable reports whether the passphrase file exists and is
// readable by its owner only. reason is empty when the file is simply absent.
func passphraseUsable(path string) (bool, string) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, ""
	}
	if mode := fi.Mode().Perm(); mode&0077 != 0 {
		return false, fmt.Sprintf("insecure permissions %04o (should be 0600)", mode)
	}
	return true, ""
}

func getCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}

// getPassphrasePath looks for .gpg-passphrase next to the executable, then
// in the credentials directory.
func getPassphrasePath() (string, error) {
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), ".gpg-passphrase")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, ".gpg-passphrase"), nil
}
