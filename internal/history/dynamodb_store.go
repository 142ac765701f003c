package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/platepick/internal/models"
)

const DEFAULT_HISTORY_TABLE_NAME = "SearchHistory"

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore keeps history in a table whose partition key is dedup_key.
type DynamoStore struct {
	client DynamoAPI
	table  string
	now    func() time.Time
}

func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	if table == "" {
		table = DEFAULT_HISTORY_TABLE_NAME
	}
	return &DynamoStore{client: client, table: table, now: time.Now}
}

func (s *DynamoStore) FindByKey(ctx context.Context, key models.DedupKey) ([]models.HistoryRecord, error) {
	// location is a reserved word
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("dedup_key = :k"),
		FilterExpression:       aws.String("restaurant_name = :n AND food_query = :f AND #loc = :l"),
		ExpressionAttributeNames: map[string]string{
			"#loc": "location",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: DedupHash(key)},
			":n": &types.AttributeValueMemberS{Value: key.RestaurantName},
			":f": &types.AttributeValueMemberS{Value: key.FoodQuery},
			":l": &types.AttributeValueMemberS{Value: key.Location},
		},
	}

	var records []models.HistoryRecord
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Query for history failed: %w", err)
		}

		var page []models.HistoryRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("[DynamoDB] Unable to unmarshal history page: %w", err)
		}
		records = append(records, page...)
	}
	return records, nil
}

// Append writes rec only if no item holds its dedup key.
func (s *DynamoStore) Append(ctx context.Context, rec models.HistoryRecord) (models.HistoryRecord, error) {
	if rec.DedupHash == "" {
		rec.DedupHash = DedupHash(rec.Key())
	}
	rec.Timestamp = s.now().UTC()

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("[DynamoDB] Failed to marshal history record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(dedup_key)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return models.HistoryRecord{}, ErrDuplicate
		}
		return models.HistoryRecord{}, fmt.Errorf("[DynamoDB] Failed to put history record: %w", err)
	}

	return rec, nil
}

// List scans the whole table and returns the newest records first.
func (s *DynamoStore) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	records := []models.HistoryRecord{}
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	})

	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Scan for history failed: %w", err)
		}

		var page []models.HistoryRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			slog.Error("[DynamoDB] Unable to unmarshal history page", slog.String("error", err.Error()))
			return nil, err
		}
		records = append(records, page...)
	}

	slices.SortStableFunc(records, func(a, b models.HistoryRecord) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	slog.Debug("[DynamoDB] Retrieved history", slog.Int("count", len(records)))
	return records, nil
}
