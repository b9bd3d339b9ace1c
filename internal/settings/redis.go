package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// Hash field names for the modifiers hash.
const (
	fieldBrandVoiceEnabled = "brand_voice.enabled"
	fieldBrandVoiceText    = "brand_voice.text"
	fieldStopWordsEnabled  = "stop_words.enabled"
	fieldStopWordsText     = "stop_words.text"
)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore keeps settings in two Redis hashes:
//
//	{prefix}:modifiers  brand_voice.enabled, brand_voice.text, stop_words.enabled, stop_words.text
//	{prefix}:features   <feature> -> JSON FeatureSettings
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: redis address is required", inkerrors.ErrConfigInvalidSettings)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStoreFromClient(client, cfg.Prefix), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "inkwell"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) modifiersKey() string { return s.prefix + ":modifiers" }
func (s *RedisStore) featuresKey() string  { return s.prefix + ":features" }

// Snapshot reads both hashes in a single round trip.
func (s *RedisStore) Snapshot(ctx context.Context) (domain.Settings, error) {
	var modsCmd, featuresCmd *redis.MapStringStringCmd
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		modsCmd = pipe.HGetAll(ctx, s.modifiersKey())
		featuresCmd = pipe.HGetAll(ctx, s.featuresKey())
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.Settings{}, inkerrors.Wrap(err, "failed to read settings from redis")
	}

	mods := modsCmd.Val()
	out := domain.Settings{
		Modifiers: domain.GlobalModifiers{
			BrandVoice: domain.Modifier{Enabled: parseBool(mods[fieldBrandVoiceEnabled]), Text: mods[fieldBrandVoiceText]},
			StopWords:  domain.Modifier{Enabled: parseBool(mods[fieldStopWordsEnabled]), Text: mods[fieldStopWordsText]},
		},
	}

	raw := make(map[string]domain.FeatureSettings, len(featuresCmd.Val()))
	for key, value := range featuresCmd.Val() {
		var fs domain.FeatureSettings
		if err := json.Unmarshal([]byte(value), &fs); err != nil {
			return domain.Settings{}, inkerrors.Wrapf(err, "failed to decode settings for %s", key)
		}
		raw[key] = fs
	}
	features, err := parseFeatures(raw)
	if err != nil {
		return domain.Settings{}, err
	}
	out.Features = features
	return out, nil
}

// SetFeature stores one feature's settings.
func (s *RedisStore) SetFeature(ctx context.Context, feature domain.Feature, fs domain.FeatureSettings) error {
	if _, err := domain.ParseFeature(string(feature)); err != nil {
		return err
	}
	data, err := json.Marshal(fs)
	if err != nil {
		return inkerrors.Wrap(err, "failed to encode feature settings")
	}
	if err := s.client.HSet(ctx, s.featuresKey(), string(feature), string(data)).Err(); err != nil {
		return inkerrors.Wrapf(err, "failed to store settings for %s", feature)
	}
	return nil
}

// SetModifiers stores the global modifiers.
func (s *RedisStore) SetModifiers(ctx context.Context, mods domain.GlobalModifiers) error {
	err := s.client.HSet(ctx, s.modifiersKey(),
		fieldBrandVoiceEnabled, strconv.FormatBool(mods.BrandVoice.Enabled),
		fieldBrandVoiceText, mods.BrandVoice.Text,
		fieldStopWordsEnabled, strconv.FormatBool(mods.StopWords.Enabled),
		fieldStopWordsText, mods.StopWords.Text,
	).Err()
	if err != nil {
		return inkerrors.Wrap(err, "failed to store modifiers")
	}
	return nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
