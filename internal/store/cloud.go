package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// DynamoDB key layout. All creations share one partition; the sort key is
// the zero-padded id so that a descending query is newest first.
const (
	pkCreations = "CREATIONS"
	pkMeta      = "META"
	skCounter   = "COUNTER"

	s3Prefix = "creations/"
)

// DynamoAPI is the subset of *dynamodb.Client used by CloudStore.
type DynamoAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// S3API is the subset of *s3.Client used by CloudStore.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// cloudRecord is the DynamoDB item for a creation. Image payloads live in S3.
type cloudRecord struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
	Creation
	OriginalKey  string `dynamodbav:"originalKey"`
	ToonifiedKey string `dynamodbav:"toonifiedKey"`
}

// CloudStore implements CreationStore with DynamoDB and S3.
type CloudStore struct {
	db        DynamoAPI
	s3        S3API
	tableName string
	bucket    string

	mu   sync.Mutex
	open bool
}

var _ CreationStore = (*CloudStore)(nil)

// NewCloudStore creates a CloudStore for the given table and bucket.
// The clients should be initialized from the shared AWS config.
func NewCloudStore(db DynamoAPI, s3Client S3API, tableName, bucket string) *CloudStore {
	return &CloudStore{db: db, s3: s3Client, tableName: tableName, bucket: bucket}
}

func creationSK(id int64) string {
	return fmt.Sprintf("%020d", id)
}

func objectKey(id int64, role string) string {
	return s3Prefix + strconv.FormatInt(id, 10) + "/" + role
}

// Open verifies the table is reachable.
func (s *CloudStore) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return nil
	}
	out, err := s.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: &s.tableName})
	if err != nil {
		return fmt.Errorf("DescribeTable %s: %w", s.tableName, err)
	}
	if out.Table != nil && out.Table.TableStatus != "" && out.Table.TableStatus != types.TableStatusActive {
		log.Warn().Str("table", s.tableName).Str("status", string(out.Table.TableStatus)).Msg("Creation table is not active")
	}
	s.open = true
	log.Debug().Str("table", s.tableName).Str("bucket", s.bucket).Msg("Cloud creation store opened")
	return nil
}

func (s *CloudStore) isOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Add uploads both images, then writes the metadata item.
func (s *CloudStore) Add(ctx context.Context, c NewCreation) (int64, error) {
	if !s.isOpen() {
		return 0, ErrNotOpen
	}

	original, err := base64.StdEncoding.DecodeString(c.OriginalImageBase64)
	if err != nil {
		return 0, fmt.Errorf("invalid original image payload: %w", err)
	}
	toonified, err := base64.StdEncoding.DecodeString(c.ToonifiedImageBase64)
	if err != nil {
		return 0, fmt.Errorf("invalid result image payload: %w", err)
	}

	id, err := s.nextID(ctx)
	if err != nil {
		return 0, err
	}
	rec := cloudRecord{
		PK:           pkCreations,
		SK:           creationSK(id),
		Creation:     newCreation(id, c),
		OriginalKey:  objectKey(id, "original"),
		ToonifiedKey: objectKey(id, "toonified"),
	}

	if err := s.putObject(ctx, rec.OriginalKey, c.OriginalImageMIMEType, original); err != nil {
		return 0, err
	}
	if err := s.putObject(ctx, rec.ToonifiedKey, "image/png", toonified); err != nil {
		return 0, err
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return 0, fmt.Errorf("marshal: %w", err)
	}
	if _, err := s.db.PutItem(ctx, &dynamodb.PutItemInput{TableName: &s.tableName, Item: item}); err != nil {
		return 0, fmt.Errorf("PutItem PK=%s SK=%s: %w", rec.PK, rec.SK, err)
	}

	log.Debug().Int64("id", id).Msg("Creation saved to cloud store")
	return id, nil
}

// nextID atomically increments the counter item.
func (s *CloudStore) nextID(ctx context.Context) (int64, error) {
	out, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkMeta},
			"SK": &types.AttributeValueMemberS{Value: skCounter},
		},
		UpdateExpression: aws.String("ADD #v :one"),
		ExpressionAttributeNames: map[string]string{
			"#v": "value",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("UpdateItem counter: %w", err)
	}
	v, ok := out.Attributes["value"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("UpdateItem counter: missing value attribute")
	}
	id, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("UpdateItem counter: %w", err)
	}
	return id, nil
}

// List queries all creations newest first and fetches their images.
func (s *CloudStore) List(ctx context.Context) ([]Creation, error) {
	if !s.isOpen() {
		return nil, ErrNotOpen
	}

	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pkCreations},
		},
		ScanIndexForward: aws.Bool(false),
	}

	var creations []Creation
	for {
		result, err := s.db.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query PK=%s: %w", pkCreations, err)
		}
		for _, item := range result.Items {
			var rec cloudRecord
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				return nil, fmt.Errorf("unmarshal creation: %w", err)
			}
			c, err := s.hydrate(ctx, rec)
			if err != nil {
				log.Warn().Err(err).Int64("id", rec.ID).Msg("Skipping creation with missing images")
				continue
			}
			creations = append(creations, c)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	sortNewestFirst(creations)
	return creations, nil
}

func (s *CloudStore) hydrate(ctx context.Context, rec cloudRecord) (Creation, error) {
	c := rec.Creation
	original, err := s.getObject(ctx, rec.OriginalKey)
	if err != nil {
		return c, err
	}
	toonified, err := s.getObject(ctx, rec.ToonifiedKey)
	if err != nil {
		return c, err
	}
	c.OriginalImageBase64 = base64.StdEncoding.EncodeToString(original)
	c.ToonifiedImageBase64 = base64.StdEncoding.EncodeToString(toonified)
	return c, nil
}

// Delete removes the metadata item and both objects.
func (s *CloudStore) Delete(ctx context.Context, id int64) error {
	if !s.isOpen() {
		return ErrNotOpen
	}
	_, err := s.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkCreations},
			"SK": &types.AttributeValueMemberS{Value: creationSK(id)},
		},
	})
	if err != nil {
		return fmt.Errorf("DeleteItem PK=%s SK=%s: %w", pkCreations, creationSK(id), err)
	}
	for _, role := range []string{"original", "toonified"} {
		key := objectKey(id, role)
		if _, err := s.s3.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to delete creation image")
		}
	}
	return nil
}

// Close marks the store closed. The AWS clients hold no resources.
func (s *CloudStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

func (s *CloudStore) putObject(ctx context.Context, key, contentType string, data []byte) error {
	start := time.Now()
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s: %w", key, err)
	}
	log.Debug().Str("key", key).Int("bytes", len(data)).Dur("duration", time.Since(start)).Msg("Uploaded creation image")
	return nil
}

func (s *CloudStore) getObject(ctx context.Context, key string) ([]byte, error) {
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("S3 GetObject %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}
