package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	r := miniredis.RunT(t)
	cache, err := NewRedisCache(context.Background(), fmt.Sprintf("redis://%s", r.Addr()))
	if err != nil {
		t.Fatal(err)
	}
	return cache, r
}

func TestSetGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	err := cache.Set(ctx, "test", "test")
	if err != nil {
		t.Error(err)
	}
	value, err := cache.Get(ctx, "test")
	if err != nil {
		t.Error(err)
	}
	if value != "test" {
		t.Errorf("expected test, got %s", value)
	}
}

func TestSetGetJSON(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	// test struct that will be marshalled to JSON
	type Test struct {
		Name string
		Age  int
	}
	test := Test{
		Name: "jsontest",
		Age:  10,
	}
	err := cache.SetJSON(ctx, "jsontest", test)
	if err != nil {
		t.Error(err)
	}
	// Confirm the value is stored in the cache as a JSON string
	js, err := cache.Get(ctx, "jsontest")
	if err != nil {
		t.Error(err)
	}
	if js != `{"Name":"jsontest","Age":10}` {
		t.Errorf("expected `{\"Name\":\"jsontest\",\"Age\":10}`, got %s", js)
	}

	// Confirm the value is unmarshalled into the given interface
	var test2 Test
	err = cache.GetJSON(ctx, "jsontest", &test2)
	if err != nil {
		t.Error(err)
	}
	if test2.Name != "jsontest" || test2.Age != 10 {
		t.Errorf("expected {\"Name\":\"jsontest\",\"Age\":10}, got %v", test2)
	}
}

func TestGetJSONMissAndCorrupt(t *testing.T) {
	cache, r := newTestCache(t)
	ctx := context.Background()

	var v map[string]any
	if err := cache.GetJSON(ctx, "missing", &v); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}

	r.Set("corrupt", "{not json") //nolint:errcheck
	err := cache.GetJSON(ctx, "corrupt", &v)
	var de *DecodeError
	if !errors.As(err, &de) || de.Key != "corrupt" {
		t.Errorf("expected a DecodeError, got %v", err)
	}
}

func TestGetJSONBackendDown(t *testing.T) {
	cache, r := newTestCache(t)
	r.Close()

	var v map[string]any
	err := cache.GetJSON(context.Background(), "plan", &v)
	var de *DecodeError
	if err == nil || errors.Is(err, ErrMiss) || errors.As(err, &de) {
		t.Errorf("expected a connection error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	cache, r := newTestCache(t)
	ctx := context.Background()

	r.Set("gone", "soon") //nolint:errcheck
	if err := cache.Delete(ctx, "gone"); err != nil {
		t.Fatal(err)
	}
	if r.Exists("gone") {
		t.Error("expected key to be deleted")
	}
	if err := cache.Delete(ctx, "never-there"); err != nil {
		t.Errorf("expected deleting a missing key to succeed, got %v", err)
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "foobar"); err == nil {
		t.Error("expected an error for an invalid redis URL")
	}
}
