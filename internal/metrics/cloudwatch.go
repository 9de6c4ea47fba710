package metrics

import (
	"context"
	"time"

	"github.com/Conceptual-Machines/journey-api/internal/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	namespace                = "JourneyAPI"
	httpStatusServerError    = 500
	cloudwatchTimeoutSeconds = 5
)

// putMetricDataAPI is the slice of the CloudWatch client we use
type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Client wraps CloudWatch client for custom metrics
type Client struct {
	client      putMetricDataAPI
	enabled     bool
	environment string
	async       bool
}

// NewClient creates a new CloudWatch metrics client. It is disabled unless
// enabled is set and the environment is production.
func NewClient(ctx context.Context, environment string, enabled bool) *Client {
	if !enabled || environment != "production" {
		logger.Info("CloudWatch metrics disabled", logger.Fields{"environment": environment})
		return &Client{enabled: false, environment: environment}
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Warn("Failed to load AWS config for CloudWatch", logger.Fields{"error": err.Error()})
		return &Client{enabled: false, environment: environment}
	}

	logger.Info("CloudWatch metrics enabled", logger.Fields{"namespace": namespace})
	return &Client{
		client:      cloudwatch.NewFromConfig(cfg),
		enabled:     true,
		environment: environment,
		async:       true,
	}
}

// RecordAPIRequest records an API request metric
func (m *Client) RecordAPIRequest(_ context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	m.dispatch(func() {
		metricName := "APIRequests"
		if statusCode >= httpStatusServerError {
			metricName = "APIErrors"
		}

		dimensions := m.dimensions("Endpoint", endpoint)
		m.putMetrics(
			dimensions,
			datum(metricName, 1, types.StandardUnitCount),
			datum("APILatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds),
		)
	})
}

// RecordGeneration records the outcome, latency and token usage of one generation
func (m *Client) RecordGeneration(_ context.Context, outcome Outcome) {
	if !m.enabled {
		return
	}

	m.dispatch(func() {
		outcomeDims := append(m.dimensions("Task", outcome.Task), types.Dimension{
			Name:  aws.String("Kind"),
			Value: aws.String(outcome.Kind),
		})
		m.putMetrics(outcomeDims, datum("Generations", 1, types.StandardUnitCount))

		taskDims := m.dimensions("Task", outcome.Task)
		data := []types.MetricDatum{
			datum("GenerationDuration", float64(outcome.Duration.Milliseconds()), types.StandardUnitMilliseconds),
		}
		if outcome.TotalTokens > 0 {
			data = append(data,
				datum("Tokens/Input", float64(outcome.InputTokens), types.StandardUnitCount),
				datum("Tokens/Output", float64(outcome.OutputTokens), types.StandardUnitCount),
				datum("Tokens/Total", float64(outcome.TotalTokens), types.StandardUnitCount),
			)
		}
		m.putMetrics(taskDims, data...)
	})
}

func (m *Client) dispatch(fn func()) {
	if m.async {
		go fn()
		return
	}
	fn()
}

func (m *Client) dimensions(name, value string) []types.Dimension {
	return []types.Dimension{
		{
			Name:  aws.String(name),
			Value: aws.String(value),
		},
		{
			Name:  aws.String("Environment"),
			Value: aws.String(m.environment),
		},
	}
}

func datum(name string, value float64, unit types.StandardUnit) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
	}
}

// putMetrics sends one batch of metrics sharing the same dimensions
func (m *Client) putMetrics(dimensions []types.Dimension, data ...types.MetricDatum) {
	if !m.enabled || m.client == nil || len(data) == 0 {
		return
	}

	cwCtx, cancel := context.WithTimeout(context.Background(), cloudwatchTimeoutSeconds*time.Second)
	defer cancel()

	now := time.Now()
	for i := range data {
		data[i].Dimensions = dimensions
		data[i].Timestamp = aws.Time(now)
	}

	_, err := m.client.PutMetricData(cwCtx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(namespace),
		MetricData: data,
	})
	if err != nil {
		logger.Warn("Failed to put CloudWatch metrics", logger.Fields{
			"metric": aws.ToString(data[0].MetricName),
			"error":  err.Error(),
		})
	}
}
