package hostfunc

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/caffeineduck/asi/interop"
)

var (
	ErrKeyTooLarge   = errors.New("key too large")
	ErrValueTooLarge = errors.New("value too large")
	ErrStoreFull     = errors.New("store full")
)

// KVConfig limits an instance store. Zero fields mean no limit.
type KVConfig struct {
	MaxKeySize   int
	MaxValueSize int
	MaxEntries   int
}

func DefaultKVConfig() KVConfig {
	return KVConfig{
		MaxKeySize:   256,
		MaxValueSize: 64 * 1024,
		MaxEntries:   1000,
	}
}

type KV struct {
	mu     sync.RWMutex
	data   map[string]string
	config KVConfig
}

func NewKV(config KVConfig) *KV {
	return &KV{data: make(map[string]string), config: config}
}

func (kv *KV) Get(key string) (string, bool) {
	kv.mu.RLock()
	val, ok := kv.data[key]
	kv.mu.RUnlock()
	return val, ok
}

func (kv *KV) Set(key, value string) error {
	if kv.config.MaxKeySize > 0 && len(key) > kv.config.MaxKeySize {
		return ErrKeyTooLarge
	}
	if kv.config.MaxValueSize > 0 && len(value) > kv.config.MaxValueSize {
		return ErrValueTooLarge
	}

	kv.mu.Lock()
	defer kv.mu.Unlock()

	if _, exists := kv.data[key]; !exists && kv.config.MaxEntries > 0 && len(kv.data) >= kv.config.MaxEntries {
		return ErrStoreFull
	}
	kv.data[key] = value
	return nil
}

func (kv *KV) Delete(key string) {
	kv.mu.Lock()
	delete(kv.data, key)
	kv.mu.Unlock()
}

// Keys returns the stored keys in sorted order.
func (kv *KV) Keys() []string {
	kv.mu.RLock()
	keys := make([]string, 0, len(kv.data))
	for k := range kv.data {
		keys = append(keys, k)
	}
	kv.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

func instanceKV(ctx context.Context) (*KV, error) {
	s, ok := StateFrom(ctx)
	if !ok {
		return nil, interop.ErrBadRequest
	}
	return s.KV, nil
}

func kvGet(ctx context.Context, req interop.KVGetRequest) (interop.KVGetResponse, error) {
	kv, err := instanceKV(ctx)
	if err != nil {
		return interop.KVGetResponse{}, err
	}
	val, ok := kv.Get(req.Key)
	return interop.KVGetResponse{Value: val, Found: ok}, nil
}

func kvSet(ctx context.Context, req interop.KVSetRequest) (interop.Unit, error) {
	kv, err := instanceKV(ctx)
	if err != nil {
		return interop.Unit{}, err
	}
	return interop.Unit{}, kv.Set(req.Key, req.Value)
}

func kvDelete(ctx context.Context, req interop.KVDeleteRequest) (interop.Unit, error) {
	kv, err := instanceKV(ctx)
	if err != nil {
		return interop.Unit{}, err
	}
	kv.Delete(req.Key)
	return interop.Unit{}, nil
}

func kvKeys(ctx context.Context, _ interop.KVKeysRequest) (interop.KVKeysResponse, error) {
	kv, err := instanceKV(ctx)
	if err != nil {
		return interop.KVKeysResponse{}, err
	}
	return interop.KVKeysResponse{Keys: kv.Keys()}, nil
}
