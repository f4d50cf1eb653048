package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSM struct {
	value  string
	err    error
	called string
}

func (f *fakeSSM) GetParameter(ctx context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.called = aws.ToString(in.Name)
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: aws.String(f.value)}}, nil
}

func TestGetAPIKeyFromEnv(t *testing.T) {
	const testKey = "test-api-key-12345"
	t.Setenv("GEMINI_API_KEY", testKey)

	ssmClient := &fakeSSM{value: "from-ssm"}
	key, err := GetAPIKey(context.Background(), Source{SSM: ssmClient, SSMParam: "/toon/key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != testKey {
		t.Errorf("expected key %q, got %q", testKey, key)
	}
	if ssmClient.called != "" {
		t.Error("SSM should not be consulted when the env var is set")
	}
}

func TestGetAPIKeyFromSSM(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("HOME", t.TempDir())

	ssmClient := &fakeSSM{value: " ssm-key \n"}
	key, err := GetAPIKey(context.Background(), Source{SSM: ssmClient, SSMParam: "/toon/prod/gemini-api-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "ssm-key" {
		t.Errorf("expected trimmed SSM key, got %q", key)
	}
	if ssmClient.called != "/toon/prod/gemini-api-key" {
		t.Errorf("unexpected parameter name %q", ssmClient.called)
	}
}

func TestGetAPIKeyNoSource(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("HOME", t.TempDir())

	_, err := GetAPIKey(context.Background(), Source{SSM: &fakeSSM{err: errors.New("access denied")}, SSMParam: "/x"})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestGetCredentialPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := getCredentialPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := filepath.Join(home, ".toon-nation", "credentials.gpg")
	if path != expected {
		t.Errorf("expected path %q, got %q", expected, path)
	}
}

func TestGetFromGPGFileNotFound(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := getFromGPG(); err == nil {
		t.Error("expected error when credentials file does not exist")
	}
}

func TestPassphraseUsable(t *testing.T) {
	dir := t.TempDir()

	if ok, reason := passphraseUsable(filepath.Join(dir, "missing")); ok || reason != "" {
		t.Errorf("missing file: ok=%v reason=%q", ok, reason)
	}

	secure := filepath.Join(dir, "secure")
	if err := os.WriteFile(secure, []byte("pw"), 0600); err != nil {
		t.Fatal(err)
	}
	if ok, _ := passphraseUsable(secure); !ok {
		t.Error("0600 passphrase file should be usable")
	}

	open := filepath.Join(dir, "open")
	if err := os.WriteFile(open, []byte("pw"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(open, 0644); err != nil {
		t.Fatal(err)
	}
	if ok, reason := passphraseUsable(open); ok || reason == "" {
		t.Errorf("0644 passphrase file: ok=%v reason=%q", ok, reason)
	}
}
