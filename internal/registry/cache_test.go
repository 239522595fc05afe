package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTTL = 5 * time.Minute

// countingHandler returns a fixed register and counts invocations.
type countingHandler struct {
	register RegisterFor
	err      error
	calls    int
}

func (h *countingHandler) Handle(_ context.Context, _ ConnectedRegistryQuery) (RegisterFor, error) {
	h.calls++
	return h.register, h.err
}

func sampleRegister() RegisterFor {
	return RegisterFor{
		First:  NewHandle("dev1"),
		Second: NewHandle("dev2"),
		Entries: []Entry{
			{RegisteredAt: day(2022, 5, 30), Connected: false},
			{RegisteredAt: day(2022, 6, 1), Connected: true, Organizations: []string{"org1", "org3"}},
		},
	}
}

func encoded(t *testing.T, r RegisterFor) []byte {
	t.Helper()
	data, err := json.Marshal(r)
	require.NoError(t, err)
	return data
}

func TestCacheKey_EscapesSeparator(t *testing.T) {
	assert.Equal(t, "connected:register:v2:dev1:dev2", CacheKey(NewQuery("dev1", "dev2")))
	assert.Equal(t, "connected:register:v2:a%3Ab:c", CacheKey(NewQuery("a:b", "c")))
	assert.Equal(t, "connected:register:v2:a:b%3Ac", CacheKey(NewQuery("a", "b:c")))
	assert.NotEqual(t, CacheKey(NewQuery("a:b", "c")), CacheKey(NewQuery("a", "b:c")))
	assert.NotEqual(t, CacheKey(NewQuery("a", "b")), CacheKey(NewQuery("b", "a")))
}

func TestCachedQueryHandler_MissDelegatesAndStores(t *testing.T) {
	client, mock := redismock.NewClientMock()
	next := &countingHandler{register: sampleRegister()}
	h := NewCachedQueryHandler(next, client, testTTL)
	q := NewQuery("dev1", "dev2")

	mock.ExpectGet(CacheKey(q)).RedisNil()
	mock.ExpectSet(CacheKey(q), encoded(t, next.register), testTTL).SetVal("OK")

	r, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, next.register, r)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedQueryHandler_HitSkipsDelegate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	next := &countingHandler{}
	h := NewCachedQueryHandler(next, client, testTTL)
	q := NewQuery("dev1", "dev2")
	want := sampleRegister()

	mock.ExpectGet(CacheKey(q)).SetVal(string(encoded(t, want)))

	r, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 0, next.calls)
	assert.Equal(t, want.First, r.First)
	assert.Equal(t, want.Second, r.Second)
	require.Len(t, r.Entries, len(want.Entries))
	for i := range want.Entries {
		assert.True(t, want.Entries[i].Equal(r.Entries[i]), "entry %d differs", i)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedQueryHandler_EmptyRegisterHitKeepsNonNilEntries(t *testing.T) {
	client, mock := redismock.NewClientMock()
	h := NewCachedQueryHandler(&countingHandler{}, client, testTTL)
	q := NewQuery("x", "y")

	mock.ExpectGet(CacheKey(q)).SetVal(`{"first":"x","second":"y","entries":null}`)

	r, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.NotNil(t, r.Entries)
	assert.Empty(t, r.Entries)
}

func TestCachedQueryHandler_ReadErrorFallsThrough(t *testing.T) {
	client, mock := redismock.NewClientMock()
	next := &countingHandler{register: sampleRegister()}
	h := NewCachedQueryHandler(next, client, testTTL)
	q := NewQuery("dev1", "dev2")

	mock.ExpectGet(CacheKey(q)).SetErr(errors.New("connection refused"))
	mock.ExpectSet(CacheKey(q), encoded(t, next.register), testTTL).SetErr(errors.New("connection refused"))

	r, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, next.register, r)
}

func TestCachedQueryHandler_CorruptPayloadIsAMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	next := &countingHandler{register: sampleRegister()}
	h := NewCachedQueryHandler(next, client, testTTL)
	q := NewQuery("dev1", "dev2")

	mock.ExpectGet(CacheKey(q)).SetVal("{not json")
	mock.ExpectSet(CacheKey(q), encoded(t, next.register), testTTL).SetVal("OK")

	_, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedQueryHandler_DelegateErrorNotCached(t *testing.T) {
	client, mock := redismock.NewClientMock()
	next := &countingHandler{err: errors.New("storage fault")}
	h := NewCachedQueryHandler(next, client, testTTL)
	q := NewQuery("dev1", "dev2")

	mock.ExpectGet(CacheKey(q)).RedisNil()

	_, err := h.Handle(context.Background(), q)
	assert.ErrorIs(t, err, next.err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedQueryHandler_ColonHandlesDoNotShareEntries(t *testing.T) {
	client, mock := redismock.NewClientMock()
	first := RegisterFor{
		First:   NewHandle("a:b"),
		Second:  NewHandle("c"),
		Entries: []Entry{{RegisteredAt: day(2022, 6, 1), Connected: true, Organizations: []string{"org1"}}},
	}
	second := RegisterFor{First: NewHandle("a"), Second: NewHandle("b:c"), Entries: []Entry{}}

	stored := NewCachedQueryHandler(&countingHandler{register: first}, client, testTTL)
	mock.ExpectGet("connected:register:v2:a%3Ab:c").RedisNil()
	mock.ExpectSet("connected:register:v2:a%3Ab:c", encoded(t, first), testTTL).SetVal("OK")
	_, err := stored.Handle(context.Background(), NewQuery("a:b", "c"))
	require.NoError(t, err)

	next := &countingHandler{register: second}
	h := NewCachedQueryHandler(next, client, testTTL)
	mock.ExpectGet("connected:register:v2:a:b%3Ac").RedisNil()
	mock.ExpectSet("connected:register:v2:a:b%3Ac", encoded(t, second), testTTL).SetVal("OK")

	r, err := h.Handle(context.Background(), NewQuery("a", "b:c"))
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, second, r)
	assert.NoError(t, mock.ExpectationsWereMet())
}
