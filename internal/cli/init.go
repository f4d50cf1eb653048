package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/toon-nation/internal/auth"
	"github.com/fpang/toon-nation/internal/config"
	"github.com/fpang/toon-nation/internal/gemini"
	"github.com/fpang/toon-nation/internal/store"
)

// NeedsAWS reports whether cfg refers to any AWS resource.
func NeedsAWS(cfg *config.Config) bool {
	return cfg.StoreBackend == config.BackendAWS || cfg.SSMKeyParam != ""
}

// InitAWS loads the default AWS config. Exits fatally on failure.
func InitAWS(ctx context.Context) aws.Config {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", awsCfg.Region).Msg("AWS config loaded")
	return awsCfg
}

// InitGeminiClient resolves the API key, validates it and returns a client
// ready for use. Exits fatally on failure. awsCfg may be nil when no SSM
// parameter is configured.
func InitGeminiClient(ctx context.Context, cfg *config.Config, awsCfg *aws.Config) *gemini.Client {
	src := auth.Source{SSMParam: cfg.SSMKeyParam}
	if awsCfg != nil && cfg.SSMKeyParam != "" {
		src.SSM = ssm.NewFromConfig(*awsCfg)
	}
	apiKey, err := auth.GetAPIKey(ctx, src)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to retrieve API key")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	log.Info().Msg("Connection successful - Gemini client initialized")

	vctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := auth.ValidateAPIKey(vctx, gc, cfg.TextModel); err != nil {
		HandleValidationError(err)
	}

	return gemini.NewClientWith(gc.Models, gemini.NewVideoBackend(gc), apiKey, gemini.Options{
		ImageModel:   cfg.ImageModel,
		TextModel:    cfg.TextModel,
		VideoModel:   cfg.VideoModel,
		PollInterval: cfg.PollInterval,
		MaxPolls:     cfg.MaxPolls,
		HTTPClient:   &http.Client{Timeout: 5 * time.Minute},
	})
}

// NewStore builds the configured creation store without opening it.
func NewStore(cfg *config.Config, awsCfg *aws.Config) (store.CreationStore, error) {
	switch cfg.StoreBackend {
	case config.BackendAWS:
		if awsCfg == nil {
			return nil, errors.New("AWS config is required for the aws store backend")
		}
		return store.NewCloudStore(dynamodb.NewFromConfig(*awsCfg), s3.NewFromConfig(*awsCfg), cfg.DynamoTable, cfg.S3Bucket), nil
	default:
		return store.NewFileStore(cfg.CreationsDir()), nil
	}
}

// OpenStore builds and opens the configured store. Exits fatally on failure.
// The caller owns Close.
func OpenStore(ctx context.Context, cfg *config.Config, awsCfg *aws.Config) store.CreationStore {
	st, err := NewStore(cfg, awsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure creation store")
	}
	if err := st.Open(ctx); err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to open creation store")
	}
	return st
}

// StoreLocation describes where creations live, for startup logging.
func StoreLocation(cfg *config.Config) (label, location string) {
	if cfg.StoreBackend == config.BackendAWS {
		return "dynamodb+s3", cfg.DynamoTable + " / s3://" + cfg.S3Bucket
	}
	return "file", cfg.CreationsDir()
}

// AWSConfigIfNeeded loads the AWS config when cfg refers to AWS, and
// returns nil otherwise.
func AWSConfigIfNeeded(ctx context.Context, cfg *config.Config) *aws.Config {
	if !NeedsAWS(cfg) {
		return nil
	}
	awsCfg := InitAWS(ctx)
	return &awsCfg
}
