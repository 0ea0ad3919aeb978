package cache

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const tableName = "TaxonomyCache"

// DynamoDBAPI defines the interface for DynamoDB operations
type DynamoDBAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// CacheItem is the stored form of a payload
type CacheItem struct {
	Key       string `dynamodbav:"key"`
	Data      []byte `dynamodbav:"data"`
	Timestamp int64  `dynamodbav:"timestamp"`
	TTL       int64  `dynamodbav:"ttl"`
}

// DynamoDBCache implements CacheProvider using DynamoDB
type DynamoDBCache struct {
	client   DynamoDBAPI
	cacheTTL time.Duration
}

// NewDynamoDBCache creates a new DynamoDB cache provider
func NewDynamoDBCache() (*DynamoDBCache, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, err
	}

	return NewDynamoDBCacheWithClient(dynamodb.NewFromConfig(cfg)), nil
}

// NewDynamoDBCacheWithClient creates a new DynamoDB cache provider with a custom client
func NewDynamoDBCacheWithClient(client DynamoDBAPI) *DynamoDBCache {
	return &DynamoDBCache{
		client:   client,
		cacheTTL: defaultTTL,
	}
}

// Initialize creates the DynamoDB table if it doesn't exist
func (c *DynamoDBCache) Initialize() error {
	ctx := context.TODO()

	// Check if table exists
	_, err := c.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err == nil {
		return nil
	}

	_, err = c.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("key"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("key"),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	return err
}

func itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: keyPrefix + key},
	}
}

// Get retrieves a payload from DynamoDB if available
func (c *DynamoDBCache) Get(key string) ([]byte, bool) {
	ctx := context.TODO()

	result, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key:       itemKey(key),
	})
	if err != nil {
		log().Warn("dynamodb get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if result.Item == nil {
		return nil, false
	}

	var item CacheItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, false
	}

	// DynamoDB TTL deletion is lazy, so expiry is checked on read too
	if time.Now().Unix() > item.TTL {
		if _, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(tableName),
			Key:       itemKey(key),
		}); err != nil {
			log().Warn("error deleting expired cache item", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	return item.Data, true
}

// Set stores a payload in DynamoDB
func (c *DynamoDBCache) Set(key string, payload []byte) {
	ctx := context.TODO()
	now := time.Now()

	av, err := attributevalue.MarshalMap(CacheItem{
		Key:       keyPrefix + key,
		Data:      payload,
		Timestamp: now.Unix(),
		TTL:       now.Add(c.cacheTTL).Unix(),
	})
	if err != nil {
		log().Warn("error marshaling cache item", zap.String("key", key), zap.Error(err))
		return
	}

	if _, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	}); err != nil {
		log().Warn("dynamodb put failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateCache deletes every item in the cache table
func (c *DynamoDBCache) InvalidateCache() {
	ctx := context.Background()

	var startKey map[string]types.AttributeValue
	for {
		out, err := c.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(tableName),
			ProjectionExpression: aws.String("#k"),
			ExpressionAttributeNames: map[string]string{
				"#k": "key",
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			log().Warn("dynamodb scan failed", zap.Error(err))
			return
		}

		for _, item := range out.Items {
			if _, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(tableName),
				Key:       map[string]types.AttributeValue{"key": item["key"]},
			}); err != nil {
				log().Warn("dynamodb delete failed", zap.Error(err))
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			return
		}
		startKey = out.LastEvaluatedKey
	}
}

// SetCacheTTL sets the cache time-to-live duration
func (c *DynamoDBCache) SetCacheTTL(ttl time.Duration) {
	c.cacheTTL = ttl
}
