package cache

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MockDynamoDBClient implements DynamoDBAPI for testing
type MockDynamoDBClient struct {
	mu       sync.RWMutex
	tables   map[string]map[string]map[string]types.AttributeValue
	pageSize int
}

// NewMockDynamoDBClient creates a new mock DynamoDB client
func NewMockDynamoDBClient() *MockDynamoDBClient {
	return &MockDynamoDBClient{
		tables:   make(map[string]map[string]map[string]types.AttributeValue),
		pageSize: 2,
	}
}

func keyOf(item map[string]types.AttributeValue) string {
	if s, ok := item["key"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

// CreateTable mocks the CreateTable operation
func (m *MockDynamoDBClient) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tables[*params.TableName]; !ok {
		m.tables[*params.TableName] = make(map[string]map[string]types.AttributeValue)
	}
	return &dynamodb.CreateTableOutput{}, nil
}

// DescribeTable mocks the DescribeTable operation
func (m *MockDynamoDBClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.tables[*params.TableName]; !ok {
		return nil, &types.ResourceNotFoundException{Message: params.TableName}
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

// GetItem mocks the GetItem operation
func (m *MockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	table, ok := m.tables[*params.TableName]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: params.TableName}
	}
	// Return empty response when item doesn't exist
	return &dynamodb.GetItemOutput{Item: table[keyOf(params.Key)]}, nil
}

// PutItem mocks the PutItem operation
func (m *MockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, ok := m.tables[*params.TableName]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: params.TableName}
	}
	key := keyOf(params.Item)
	if key == "" {
		return nil, errors.New("missing key attribute")
	}
	table[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

// DeleteItem mocks the DeleteItem operation
func (m *MockDynamoDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if table, ok := m.tables[*params.TableName]; ok {
		delete(table, keyOf(params.Key))
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

// Scan mocks the Scan operation, paging through keys in sorted order
func (m *MockDynamoDBClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	table, ok := m.tables[*params.TableName]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: params.TableName}
	}

	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	start := 0
	if params.ExclusiveStartKey != nil {
		after := keyOf(params.ExclusiveStartKey)
		start = sort.SearchStrings(keys, after)
		if start < len(keys) && keys[start] == after {
			start++
		}
	}

	out := &dynamodb.ScanOutput{}
	for i := start; i < len(keys) && len(out.Items) < m.pageSize; i++ {
		out.Items = append(out.Items, table[keys[i]])
	}
	if end := start + len(out.Items); end < len(keys) && len(out.Items) > 0 {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"key": &types.AttributeValueMemberS{Value: keys[end-1]},
		}
	}
	return out, nil
}

// Len returns the number of items stored in table
func (m *MockDynamoDBClient) Len(table string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables[table])
}
