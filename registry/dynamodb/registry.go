// Package dynamodb publishes mode sets to a DynamoDB table, one item per
// cluster plus one run item.
//
// Table schema:
//   - Partition key: source (string)
//   - Sort key: sk (string) - "<run_id>#<label>" with the label zero-padded,
//     or "<run_id>#run" for the run item
//
// A run is written with TransactWriteItems in chunks of at most 100 items.
// The run item is written last, and Get ignores runs without it, so readers
// never see a partially published run.
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name omacluster-modes \
//	  --attribute-definitions AttributeName=source,AttributeType=S AttributeName=sk,AttributeType=S \
//	  --key-schema AttributeName=source,KeyType=HASH AttributeName=sk,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/time/rate"

	"github.com/hupe1980/omacluster"
	"github.com/hupe1980/omacluster/registry"
)

// Client is the subset of the DynamoDB API used by Registry.
type Client interface {
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DefaultWritesPerSecond is the default write transaction rate.
const DefaultWritesPerSecond = 25

// maxTransactItems is the DynamoDB limit of actions per TransactWriteItems call.
const maxTransactItems = 100

const runSuffix = "run"

// Options configures a Registry.
type Options struct {
	// WritesPerSecond limits TransactWriteItems calls. Zero or negative
	// disables the limit.
	WritesPerSecond float64
	// Burst is the limiter bucket size. Default: 1.
	Burst int
}

// Registry implements registry.Registry.
type Registry struct {
	client  Client
	table   string
	limiter *rate.Limiter
}

var _ registry.Registry = (*Registry)(nil)

// NewRegistry creates a registry over an existing client.
func NewRegistry(client Client, table string, optFns ...func(*Options)) *Registry {
	opts := Options{WritesPerSecond: DefaultWritesPerSecond, Burst: 1}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}

	limit := rate.Inf
	if opts.WritesPerSecond > 0 {
		limit = rate.Limit(opts.WritesPerSecond)
	}
	return &Registry{
		client:  client,
		table:   table,
		limiter: rate.NewLimiter(limit, opts.Burst),
	}
}

// New creates a registry using the default AWS config chain.
func New(ctx context.Context, table string, optFns ...func(*Options)) (*Registry, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewRegistry(dynamodb.NewFromConfig(cfg), table, optFns...), nil
}

func sortKey(runID string, label int) string {
	return fmt.Sprintf("%s#%06d", runID, label)
}

func runKey(runID string) string {
	return runID + "#" + runSuffix
}

// Publish writes one item per cluster followed by the run item. Every put is
// conditional; an existing item for the same run returns registry.ErrDuplicate.
// Runs of up to 99 clusters are written in a single transaction.
func (r *Registry) Publish(ctx context.Context, set registry.ModeSet) error {
	if err := set.Validate(); err != nil {
		return err
	}

	items := make([]map[string]types.AttributeValue, 0, len(set.Clusters)+1)
	for _, c := range set.Clusters {
		items = append(items, marshalCluster(set, c))
	}
	items = append(items, marshalRun(set))

	for start := 0; start < len(items); start += maxTransactItems {
		end := min(start+maxTransactItems, len(items))
		if err := r.write(ctx, items[start:end]); err != nil {
			if errors.Is(err, registry.ErrDuplicate) {
				return fmt.Errorf("%w: %s %s", registry.ErrDuplicate, set.Source, set.RunID)
			}
			return fmt.Errorf("failed to publish run %s (items %d-%d): %w", set.RunID, start, end-1, err)
		}
	}
	return nil
}

func (r *Registry) write(ctx context.Context, items []map[string]types.AttributeValue) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	actions := make([]types.TransactWriteItem, len(items))
	for i, item := range items {
		actions[i] = types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(r.table),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(sk)"),
			},
		}
	}

	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: actions,
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for _, reason := range canceled.CancellationReasons {
				if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
					return registry.ErrDuplicate
				}
			}
		}
		return err
	}
	return nil
}

// Get reads back the clusters of one run. Members are not stored. Runs
// without a run item return registry.ErrNotFound.
func (r *Registry) Get(ctx context.Context, source, runID string) (registry.ModeSet, error) {
	set := registry.ModeSet{RunID: runID, Source: source}

	var (
		start    map[string]types.AttributeValue
		complete bool
		expected int
	)
	for {
		resp, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.table),
			KeyConditionExpression: aws.String("#src = :src AND begins_with(sk, :run)"),
			ExpressionAttributeNames: map[string]string{
				"#src": "source",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":src": &types.AttributeValueMemberS{Value: source},
				":run": &types.AttributeValueMemberS{Value: runID + "#"},
			},
			ExclusiveStartKey: start,
		})
		if err != nil {
			return registry.ModeSet{}, fmt.Errorf("failed to query DynamoDB: %w", err)
		}

		for _, item := range resp.Items {
			if stringAttr(item, "sk") == runKey(runID) {
				complete = true
				set.Algorithm = stringAttr(item, "algorithm")
				set.CreatedAt, _ = time.Parse(time.RFC3339Nano, stringAttr(item, "created_at"))
				if expected, err = intAttr(item, "clusters"); err != nil {
					return registry.ModeSet{}, err
				}
				continue
			}
			c, err := unmarshalCluster(item)
			if err != nil {
				return registry.ModeSet{}, err
			}
			set.Clusters = append(set.Clusters, c)
		}

		if len(resp.LastEvaluatedKey) == 0 {
			break
		}
		start = resp.LastEvaluatedKey
	}

	if !complete {
		return registry.ModeSet{}, fmt.Errorf("%w: %s %s", registry.ErrNotFound, source, runID)
	}
	if len(set.Clusters) != expected {
		return registry.ModeSet{}, fmt.Errorf("run %s: found %d of %d clusters", runID, len(set.Clusters), expected)
	}
	return set, nil
}

func marshalRun(set registry.ModeSet) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"source":     &types.AttributeValueMemberS{Value: set.Source},
		"sk":         &types.AttributeValueMemberS{Value: runKey(set.RunID)},
		"run_id":     &types.AttributeValueMemberS{Value: set.RunID},
		"algorithm":  &types.AttributeValueMemberS{Value: set.Algorithm},
		"created_at": &types.AttributeValueMemberS{Value: set.CreatedAt.UTC().Format(time.RFC3339Nano)},
		"clusters":   &types.AttributeValueMemberN{Value: strconv.Itoa(len(set.Clusters))},
	}
}

func marshalCluster(set registry.ModeSet, c omacluster.ClusterSummary) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"source": &types.AttributeValueMemberS{Value: set.Source},
		"sk":     &types.AttributeValueMemberS{Value: sortKey(set.RunID, c.Label)},
		"run_id": &types.AttributeValueMemberS{Value: set.RunID},
		"label":  &types.AttributeValueMemberN{Value: strconv.Itoa(c.Label)},
		"count":  &types.AttributeValueMemberN{Value: strconv.Itoa(c.Count)},
	}
	putNumber(item, "first_index", c.FirstIndex)
	putNumber(item, "last_index", c.LastIndex)
	putStat(item, "frequency", c.Frequency)
	putStat(item, "damping", c.Damping)
	putStat(item, "size", c.Size)
	return item
}

// putNumber skips NaN and infinities, which DynamoDB cannot store.
func putNumber(item map[string]types.AttributeValue, key string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	item[key] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(v, 'g', -1, 64)}
}

func putStat(item map[string]types.AttributeValue, prefix string, s omacluster.Stat) {
	putNumber(item, prefix+"_mean", s.Mean)
	putNumber(item, prefix+"_median", s.Median)
	putNumber(item, prefix+"_std", s.Std)
	putNumber(item, prefix+"_min", s.Min)
	putNumber(item, prefix+"_max", s.Max)
}

func unmarshalCluster(item map[string]types.AttributeValue) (omacluster.ClusterSummary, error) {
	label, err := intAttr(item, "label")
	if err != nil {
		return omacluster.ClusterSummary{}, err
	}
	count, err := intAttr(item, "count")
	if err != nil {
		return omacluster.ClusterSummary{}, err
	}
	return omacluster.ClusterSummary{
		Label:      label,
		Count:      count,
		Frequency:  stat(item, "frequency"),
		Damping:    stat(item, "damping"),
		Size:       stat(item, "size"),
		FirstIndex: numberAttr(item, "first_index"),
		LastIndex:  numberAttr(item, "last_index"),
	}, nil
}

func stat(item map[string]types.AttributeValue, prefix string) omacluster.Stat {
	return omacluster.Stat{
		Mean:   numberAttr(item, prefix+"_mean"),
		Median: numberAttr(item, prefix+"_median"),
		Std:    numberAttr(item, prefix+"_std"),
		Min:    numberAttr(item, prefix+"_min"),
		Max:    numberAttr(item, prefix+"_max"),
	}
}

func stringAttr(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// numberAttr returns NaN for missing attributes.
func numberAttr(item map[string]types.AttributeValue, key string) float64 {
	v, ok := item[key].(*types.AttributeValueMemberN)
	if !ok {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(v.Value, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid %s attribute in DynamoDB", key)
	}
	n, err := strconv.Atoi(v.Value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return n, nil
}
