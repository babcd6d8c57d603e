package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"GapCast/internal/domain/repository"
	"GapCast/internal/forecast"
	"GapCast/internal/handler/api"
	mid "GapCast/internal/middleware"
	"GapCast/internal/registry"
	internalrepo "GapCast/internal/repository"
	icache "GapCast/internal/service/cache"
	"GapCast/internal/service/stockdata"
	"GapCast/internal/usecase"
	pkgcache "GapCast/pkg/cache"
	pkgch "GapCast/pkg/clickhouse"
	"GapCast/pkg/config"
	pkgkafka "GapCast/pkg/kafka"
	applogger "GapCast/pkg/logger"
	"GapCast/pkg/metrics"
	"GapCast/pkg/queue"
	"GapCast/pkg/server"

	goredis "github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// schema the stores query.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS gapcast",
		"CREATE TABLE IF NOT EXISTS gapcast.news_events (ts DateTime, tag String, label String, sentiment Float64, root_id String) ENGINE=MergeTree ORDER BY (tag, ts, root_id)",
		"CREATE TABLE IF NOT EXISTS gapcast.daily_bars (bucket DateTime, symbol String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=ReplacingMergeTree ORDER BY (symbol, bucket)",
		"CREATE TABLE IF NOT EXISTS gapcast.intraday_bars_1m (bucket DateTime, symbol String, source String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=ReplacingMergeTree ORDER BY (symbol, source, bucket)",
		"CREATE TABLE IF NOT EXISTS gapcast.intraday_bars_5m (bucket DateTime, symbol String, source String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=ReplacingMergeTree ORDER BY (symbol, source, bucket)",
		"CREATE TABLE IF NOT EXISTS gapcast.intraday_bars_15m (bucket DateTime, symbol String, source String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=ReplacingMergeTree ORDER BY (symbol, source, bucket)",
		"CREATE TABLE IF NOT EXISTS gapcast.ticks_raw (ts DateTime, symbol String, price Float64, volume Float64, source String) ENGINE=MergeTree ORDER BY (symbol, ts)",
		"CREATE MATERIALIZED VIEW IF NOT EXISTS gapcast.mv_intraday_1m TO gapcast.intraday_bars_1m AS SELECT toStartOfMinute(ts) AS bucket, symbol, source, argMin(price, ts) AS open, max(price) AS high, min(price) AS low, argMax(price, ts) AS close, sum(volume) AS vol FROM gapcast.ticks_raw GROUP BY bucket, symbol, source",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideNewsStore creates the ClickHouse news store.
func ProvideNewsStore(chClient *pkgch.Client, l *applogger.Logger) *internalrepo.CHNewsStore {
	s := internalrepo.NewCHNewsStore(chClient, "gapcast.news_events")
	s.SetLogger(l)
	return s
}

// ProvidePriceStore creates the ClickHouse price store.
func ProvidePriceStore(chClient *pkgch.Client, l *applogger.Logger) *internalrepo.CHPriceStore {
	s := internalrepo.NewCHPriceStore(chClient)
	s.SetLogger(l)
	return s
}

// ProvideModelStore creates the on-disk model registry.
func ProvideModelStore(cfg *config.Config, l *applogger.Logger) (repository.ModelStore, error) {
	return registry.NewFileRegistry(cfg.Forecast.ModelsDir, registry.JSONModelSerializer{}, l)
}

// ProvideForecastPublisher creates the Kafka forecast publisher.
func ProvideForecastPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ForecastPublisher {
	return internalrepo.NewKafkaForecastPublisher(producer, cfg.Kafka.ForecastTopic)
}

// ProvidePipeline wires the forecasting pipeline.
func ProvidePipeline(
	news *internalrepo.CHNewsStore,
	prices *internalrepo.CHPriceStore,
	models repository.ModelStore,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *forecast.Pipeline {
	return forecast.NewPipeline(forecast.Deps{
		News:         news,
		Prices:       prices,
		Models:       models,
		Clock:        forecast.SystemClock{},
		Calendar:     forecast.NewHolidaySet(cfg.Forecast.Holidays),
		Logger:       l,
		Metrics:      m,
		MaxP:         cfg.Forecast.MaxP,
		MaxQ:         cfg.Forecast.MaxQ,
		LookbackDays: cfg.Forecast.LookbackDays,
		AddIndex:     cfg.Forecast.AddIndex,
	})
}

// ProvideCacheService builds the layered Redis cache used for distributed
// locking. Returns nil when Redis is disabled or unreachable; callers treat a
// nil service as "no locking".
func ProvideCacheService(cfg *config.Config, l *applogger.Logger) pkgcache.Service {
	if !cfg.Cache.Redis.Enabled {
		return nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Cache.Redis.Addr)
	if err != nil {
		host = cfg.Cache.Redis.Addr
		portStr = "6379"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 6379
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
		pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		l.Warn("redis cache unavailable, running without distributed locks", applogger.Error(err))
		return nil
	}
	return pkgcache.NewLayeredCache(rc)
}

// ProvideForecastUseCase creates the cached forecast use case.
func ProvideForecastUseCase(
	pipe *forecast.Pipeline,
	publisher repository.ForecastPublisher,
	m repository.Metrics,
	l *applogger.Logger,
	locks pkgcache.Service,
	cfg *config.Config,
) *usecase.ForecastUseCase {
	uc := usecase.NewForecastUseCase(
		pipe,
		icache.NewTTLCache(),
		publisher,
		m,
		l,
		cfg.Forecast.CacheTTL.Smart,
		cfg.Forecast.CacheTTL.Gap,
	)
	if locks != nil {
		uc.SetLockService(locks)
	}
	return uc
}

// ProvideRedisClient creates the shared Redis client for the job queue and
// the byte cache.
func ProvideRedisClient(cfg *config.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
}

// ProvideRESTClient creates the provider history client. Nil when no REST
// endpoint is configured; backfills are then unavailable.
func ProvideRESTClient(cfg *config.Config) *stockdata.RESTClient {
	if cfg.Stream.RESTURL == "" {
		return nil
	}
	return stockdata.NewRESTClient(cfg.Stream.RESTURL, cfg.Stream.APIKey)
}

// ProvideJobQueue creates the Redis-backed job queue with the train and
// backfill jobs registered.
func ProvideJobQueue(
	cfg *config.Config,
	client *goredis.Client,
	uc *usecase.ForecastUseCase,
	rest *stockdata.RESTClient,
	prices *internalrepo.CHPriceStore,
	l *applogger.Logger,
) *queue.RedisQueue {
	if !cfg.Cache.Redis.Enabled {
		return nil
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, client, queue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewTrainJob(uc, l))
	if rest != nil {
		q.RegisterJob(usecase.NewBackfillJob(rest, prices, l))
	}
	return q
}

// ProvideKafkaNewsHandler registers the handler for the news topic.
func ProvideKafkaNewsHandler(store *internalrepo.CHNewsStore, m repository.Metrics, cfg *config.Config) *usecase.KafkaNewsHandler {
	return usecase.NewKafkaNewsHandler(cfg.Kafka.NewsTopic, store, m)
}

// ProvideMarketStream creates the provider WebSocket stream. Returns nil
// when no API key is configured; the app then runs without live ticks.
func ProvideMarketStream(cfg *config.Config) repository.MarketStream {
	if cfg.Stream.APIKey == "" {
		return nil
	}
	return stockdata.New(
		cfg.Stream.APIKey,
		cfg.Stream.WebSocketURL,
		cfg.Stream.Symbols,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
	)
}

// ProvideTickCollector creates the tick collector with its realtime pipeline.
func ProvideTickCollector(
	stream repository.MarketStream,
	prices *internalrepo.CHPriceStore,
	m repository.Metrics,
) *usecase.TickCollector {
	if stream == nil {
		return nil
	}
	proc := usecase.NewTickProcessor(prices, m)
	pipe := mid.NewRealtimePipeline(proc, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTickCollector(stream, proc, m, pipe)
}

// ProvideHTTPHandler creates the HTTP surface: the JSON forecast API plus the
// plain bot endpoints the chat orchestrator calls.
func ProvideHTTPHandler(cfg *config.Config, l *applogger.Logger, uc *usecase.ForecastUseCase, jobs *queue.RedisQueue) *api.Routes {
	var svc queue.QueueService
	if jobs != nil {
		svc = jobs
	}
	forecastHandler := api.NewForecastEchoHandler(l, uc, svc)

	bot := api.NewBotHandler(uc)
	bot.SetLogger(l)
	if cfg.Cache.Redis.Enabled {
		bot.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		}))
	} else {
		bot.SetCache(icache.NewTTLCache())
	}

	return api.NewRoutes(forecastHandler, bot)
}

// logPublisher adapts the Kafka producer to the log collector's sink.
type logPublisher struct {
	p *pkgkafka.Producer
}

func (lp logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return lp.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	producer *pkgkafka.Producer,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaNewsHandler,
	chClient *pkgch.Client,
	handler *api.Routes,
	jobs *queue.RedisQueue,
	publisher repository.ForecastPublisher,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.ErrorLoggingHook{
			Logf: func(topic string, partition int, offset int64, err error) {
				l.Warn("kafka handler error",
					applogger.String("topic", topic),
					applogger.Int("partition", partition),
					applogger.Int64("offset", offset),
					applogger.Error(err),
				)
			},
		})
	}
	if producer != nil && cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      logPublisher{p: producer},
		})
	}
	app := server.New(cfg, collector, consumer, kh, chClient)
	app.SetHTTPHandler(handler)
	app.SetJobQueue(jobs)
	app.SetPublisher(publisher)
	return app
}
