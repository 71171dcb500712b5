package engine

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpods/webpods/internal/apperr"
	"github.com/webpods/webpods/internal/blob"
	"github.com/webpods/webpods/internal/cache"
	"github.com/webpods/webpods/internal/storage"
)

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	store, err := storage.Open(context.Background(), "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	blobs, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)

	c := cache.New(cache.NewMemoryAdapter(), cache.TTLs{
		Pods: time.Minute, Streams: time.Minute,
		SingleRecords: time.Minute, RecordLists: time.Minute,
	})
	return New(store, blobs, c, nil, opts)
}

func textContent(s string) Content {
	return Content{Data: []byte(s), Type: "text/plain"}
}

func TestCreatePodSeedsOwner(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()

	pod, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", pod.Name)

	owner, err := e.Owner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", owner)

	ownerStream, err := e.GetStream(ctx, "alice", ".config/owner")
	require.NoError(t, err)
	assert.Equal(t, "private", ownerStream.AccessPermission)

	pods, err := e.ListPodsOwnedBy(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, pods, 1)
	assert.Equal(t, "alice", pods[0].Name)

	_, err = e.CreatePod(ctx, "alice", "owner-1")
	assert.True(t, apperr.Is(err, apperr.CodePodExists))
	_, err = e.CreatePod(ctx, "Not_Valid", "owner-1")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidPodID))
}

func TestAppendHashChain(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)

	clock := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	e.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	stream, _, err := e.EnsureStream(ctx, "alice", "blog", "owner-1")
	require.NoError(t, err)

	first, err := e.Append(ctx, stream, "one", textContent("first"), nil, "owner-1")
	require.NoError(t, err)
	second, err := e.Append(ctx, stream, "two", textContent("second"), nil, "owner-1")
	require.NoError(t, err)

	assert.Equal(t, int64(0), first.Index)
	assert.Empty(t, first.PreviousHash)
	assert.Equal(t, ContentHash([]byte("first")), first.ContentHash)
	assert.Equal(t,
		ChainHash("", first.ContentHash, "owner-1", first.CreatedAt.UnixMilli()),
		first.Hash)

	assert.Equal(t, int64(1), second.Index)
	assert.Equal(t, first.Hash, second.PreviousHash)
	assert.Equal(t,
		ChainHash(first.Hash, second.ContentHash, "owner-1", second.CreatedAt.UnixMilli()),
		second.Hash)

	require.NoError(t, e.VerifyStreamChain(ctx, stream))
}

func TestLastWriteWinsAndSoftDelete(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)
	stream, _, err := e.EnsureStream(ctx, "alice", "blog", "owner-1")
	require.NoError(t, err)

	_, err = e.Append(ctx, stream, "post", textContent("v1"), nil, "owner-1")
	require.NoError(t, err)
	_, err = e.Append(ctx, stream, "post", textContent("v2"), nil, "owner-1")
	require.NoError(t, err)

	rec, err := e.GetByName(ctx, stream, "post")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), rec.Content)
	assert.Equal(t, int64(1), rec.Index)

	marker, err := e.SoftDelete(ctx, stream, "post", "owner-1")
	require.NoError(t, err)
	assert.True(t, marker.Deleted)
	assert.Equal(t, int64(2), marker.Index)

	_, err = e.GetByName(ctx, stream, "post")
	assert.True(t, apperr.Is(err, apperr.CodeRecordNotFound))

	// the log itself still shows history and the marker
	byIndex, err := e.GetByIndex(ctx, stream, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), byIndex.Content)
	byIndex, err = e.GetByIndex(ctx, stream, 2)
	require.NoError(t, err)
	assert.True(t, byIndex.Deleted)

	// deleting again appends nothing
	again, err := e.SoftDelete(ctx, stream, "post", "owner-1")
	require.NoError(t, err)
	assert.Equal(t, marker.Index, again.Index)
	total, err := e.store.CountRecords(ctx, stream.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	require.NoError(t, e.VerifyStreamChain(ctx, stream))
}

func TestNegativeIndexes(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)
	stream, _, err := e.EnsureStream(ctx, "alice", "blog", "owner-1")
	require.NoError(t, err)

	for _, s := range []string{"a", "b", "c"} {
		_, err = e.Append(ctx, stream, s, textContent(s), nil, "owner-1")
		require.NoError(t, err)
	}

	rec, err := e.GetByIndex(ctx, stream, -1)
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), rec.Content)
	rec, err = e.GetByIndex(ctx, stream, -3)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), rec.Content)
	_, err = e.GetByIndex(ctx, stream, -4)
	assert.True(t, apperr.Is(err, apperr.CodeRecordNotFound))

	records, err := e.Range(ctx, stream, -2, 3)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []byte("b"), records[0].Content)

	_, err = e.Range(ctx, stream, 2, 1)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidIndex))
}

func TestListAndUnique(t *testing.T) {
	e := newTestEngine(t, Options{MaxRecordLimit: 100})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)
	stream, _, err := e.EnsureStream(ctx, "alice", "blog", "owner-1")
	require.NoError(t, err)

	_, err = e.Append(ctx, stream, "a", textContent("a1"), nil, "owner-1")
	require.NoError(t, err)
	_, err = e.Append(ctx, stream, "b", textContent("b1"), nil, "owner-1")
	require.NoError(t, err)
	_, err = e.Append(ctx, stream, "a", textContent("a2"), nil, "owner-1")
	require.NoError(t, err)

	result, err := e.List(ctx, stream, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)
	require.Len(t, result.Records, 2)
	assert.True(t, result.HasMore)

	// negative after keeps the tail
	result, err = e.List(ctx, stream, 0, -1)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, []byte("a2"), result.Records[0].Content)

	unique, err := e.ListUnique(ctx, stream, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unique.Total)
	require.Len(t, unique.Records, 2)
	assert.Equal(t, "b", unique.Records[0].Name)
	assert.Equal(t, "a", unique.Records[1].Name)
	assert.Equal(t, []byte("a2"), unique.Records[1].Content)
}

func TestNameCollisions(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)

	// a child stream blocks the record name in the parent
	blog, _, err := e.EnsureStream(ctx, "alice", "blog", "owner-1")
	require.NoError(t, err)
	_, _, err = e.EnsureStream(ctx, "alice", "blog/posts", "owner-1")
	require.NoError(t, err)
	_, err = e.Append(ctx, blog, "posts", textContent("x"), nil, "owner-1")
	assert.True(t, apperr.Is(err, apperr.CodeNameConflict))

	// a record blocks the stream path under the parent
	_, err = e.Append(ctx, blog, "about", textContent("x"), nil, "owner-1")
	require.NoError(t, err)
	_, _, err = e.EnsureStream(ctx, "alice", "blog/about", "owner-1")
	assert.True(t, apperr.Is(err, apperr.CodeNameConflict))
}

func TestPermissionStreamGrants(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)

	members, _, err := e.EnsureStream(ctx, "alice", "members", "owner-1")
	require.NoError(t, err)
	guarded, err := e.CreateStream(ctx, "alice", "wiki", "owner-1", "/members")
	require.NoError(t, err)

	// no grant record: denied
	ok, err := e.CanRead(ctx, guarded, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.Append(ctx, members, "bob",
		Content{Data: []byte(`{"id":"bob","read":true,"write":false}`), Type: "application/json"},
		nil, "owner-1")
	require.NoError(t, err)

	ok, err = e.CanRead(ctx, guarded, "bob")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.CanWrite(ctx, guarded, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	// revocation: latest record wins
	_, err = e.Append(ctx, members, "bob",
		Content{Data: []byte(`{"id":"bob"}`), Type: "application/json"},
		nil, "owner-1")
	require.NoError(t, err)
	ok, err = e.CanRead(ctx, guarded, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccessInheritance(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)

	private, err := e.CreateStream(ctx, "alice", "notes", "owner-1", "private")
	require.NoError(t, err)
	child, _, err := e.EnsureStream(ctx, "alice", "notes/work", "owner-1")
	require.NoError(t, err)

	// anonymous and third parties read public streams only
	ok, err := e.CanRead(ctx, private, "")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = e.CanRead(ctx, private, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = e.CanRead(ctx, private, "owner-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// the lazily created child is public by default
	ok, err = e.CanRead(ctx, child, "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	// public streams accept writes from any principal but not anonymous
	ok, err = e.CanWrite(ctx, child, "bob")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.CanWrite(ctx, child, "")
	require.NoError(t, err)
	assert.False(t, ok)

	// system streams are owner-only even for reads by others
	ok, err = e.CanWrite(ctx, &storage.Stream{PodName: "alice", Path: ".config/routing"}, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOwnershipTransferLocksOutCreator(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)

	private, err := e.CreateStream(ctx, "alice", "notes", "owner-1", "private")
	require.NoError(t, err)

	ownerStream, err := e.GetStream(ctx, "alice", ".config/owner")
	require.NoError(t, err)
	_, err = e.Append(ctx, ownerStream, "owner",
		Content{Data: []byte(`{"owner":"bob"}`), Type: "application/json"},
		nil, "owner-1")
	require.NoError(t, err)

	owner, err := e.Owner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "bob", owner)

	// the previous owner created the stream but no longer owns the pod
	ok, err := e.CanRead(ctx, private, "owner-1")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = e.CanRead(ctx, private, "bob")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanCreate(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)

	// owner may create anywhere, others may not create roots
	ok, err := e.CanCreate(ctx, "alice", "blog", "owner-1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.CanCreate(ctx, "alice", "blog", "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	// a writable ancestor opens the subtree
	_, _, err = e.EnsureStream(ctx, "alice", "shared", "owner-1")
	require.NoError(t, err)
	ok, err = e.CanCreate(ctx, "alice", "shared/bob-notes", "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	// system paths stay owner-only
	ok, err = e.CanCreate(ctx, "alice", ".config/extra", "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlobOffload(t *testing.T) {
	e := newTestEngine(t, Options{ExternalThresholdBytes: 8})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)
	stream, _, err := e.EnsureStream(ctx, "alice", "files", "owner-1")
	require.NoError(t, err)

	payload := []byte("this payload exceeds the threshold")
	rec, err := e.Append(ctx, stream, "big.txt", Content{Data: payload, Type: "text/plain"}, nil, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, blob.Tag, rec.Storage)
	assert.Empty(t, rec.Content)
	assert.Equal(t, int64(len(payload)), rec.Size)
	assert.Equal(t, ContentHash(payload), rec.ContentHash)

	reader, err := e.OpenBlob(ctx, stream, rec)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	// small content stays inline
	small, err := e.Append(ctx, stream, "small.txt", textContent("tiny"), nil, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, small.Storage)
	assert.Equal(t, []byte("tiny"), small.Content)

	// chain verification tolerates external and purged content
	require.NoError(t, e.VerifyStreamChain(ctx, stream))
	require.NoError(t, e.Purge(ctx, stream, "big.txt", "owner-1"))
	_, err = e.OpenBlob(ctx, stream, rec)
	assert.True(t, apperr.Is(err, apperr.CodeRecordNotFound))
	require.NoError(t, e.VerifyStreamChain(ctx, stream))
}

func TestFailedAppendKeepsSharedBlobs(t *testing.T) {
	e := newTestEngine(t, Options{ExternalThresholdBytes: 8})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)
	stream, _, err := e.EnsureStream(ctx, "alice", "files", "owner-1")
	require.NoError(t, err)

	content := Content{Data: []byte("this payload exceeds the threshold"), Type: "text/plain"}
	rec, err := e.Append(ctx, stream, "doc", content, nil, "owner-1")
	require.NoError(t, err)
	require.Equal(t, blob.Tag, rec.Storage)

	// an append through a stale stream handle fails after the blob write;
	// the rollback must not unlink artifacts the committed record uses
	stale := &storage.Stream{ID: "gone", PodName: "alice", Path: "files",
		UserID: "owner-1", AccessPermission: "public"}
	_, err = e.Append(ctx, stale, "doc", content, nil, "owner-1")
	require.Error(t, err)

	reader, err := e.OpenBlob(ctx, stream, rec)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, content.Data, data)
}

func TestPurgeKeepsChain(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)
	stream, _, err := e.EnsureStream(ctx, "alice", "blog", "owner-1")
	require.NoError(t, err)

	_, err = e.Append(ctx, stream, "secret", textContent("v1"), nil, "owner-1")
	require.NoError(t, err)
	_, err = e.Append(ctx, stream, "other", textContent("keep"), nil, "owner-1")
	require.NoError(t, err)
	_, err = e.Append(ctx, stream, "secret", textContent("v2"), nil, "owner-1")
	require.NoError(t, err)

	require.NoError(t, e.Purge(ctx, stream, "secret", "owner-1"))

	_, err = e.GetByName(ctx, stream, "secret")
	assert.True(t, apperr.Is(err, apperr.CodeRecordNotFound))
	kept, err := e.GetByName(ctx, stream, "other")
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), kept.Content)

	// every version is blanked in place, indices untouched
	rec, err := e.GetByIndex(ctx, stream, 0)
	require.NoError(t, err)
	assert.True(t, rec.Purged)
	assert.Empty(t, rec.Content)

	require.NoError(t, e.VerifyStreamChain(ctx, stream))

	err = e.Purge(ctx, stream, "absent", "owner-1")
	assert.True(t, apperr.Is(err, apperr.CodeRecordNotFound))
}

func TestResolveRead(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)
	_, _, err = e.EnsureStream(ctx, "alice", "blog/posts", "owner-1")
	require.NoError(t, err)

	// full path resolves as a stream when one exists
	resolved, err := e.ResolveRead(ctx, "alice", "blog/posts", false)
	require.NoError(t, err)
	assert.Equal(t, "blog/posts", resolved.Stream.Path)
	assert.Empty(t, resolved.RecordName)

	// otherwise the last segment pops off as the record name
	resolved, err = e.ResolveRead(ctx, "alice", "blog/posts/hello", false)
	require.NoError(t, err)
	assert.Equal(t, "blog/posts", resolved.Stream.Path)
	assert.Equal(t, "hello", resolved.RecordName)

	// forceStream pins the stream interpretation
	_, err = e.ResolveRead(ctx, "alice", "blog/posts/hello", true)
	assert.True(t, apperr.Is(err, apperr.CodeStreamNotFound))

	// dotted names never resolve as streams
	resolved, err = e.ResolveRead(ctx, "alice", "blog/posts/image.png", false)
	require.NoError(t, err)
	assert.Equal(t, "image.png", resolved.RecordName)
}

func TestSplitWritePath(t *testing.T) {
	streamPath, name, err := SplitWritePath("blog/posts/hello")
	require.NoError(t, err)
	assert.Equal(t, "blog/posts", streamPath)
	assert.Equal(t, "hello", name)

	_, _, err = SplitWritePath("single")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))
	_, _, err = SplitWritePath("blog/.bad")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidName))
}

func TestDeleteStreamProtectsSystem(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)
	_, _, err = e.EnsureStream(ctx, "alice", "blog/posts", "owner-1")
	require.NoError(t, err)

	err = e.DeleteStream(ctx, "alice", ".config/owner")
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	require.NoError(t, e.DeleteStream(ctx, "alice", "blog"))
	_, err = e.GetStream(ctx, "alice", "blog/posts")
	assert.True(t, apperr.Is(err, apperr.CodeStreamNotFound))
}

func TestRoutingAndDomains(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)

	routes, err := e.Routing(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, routes)

	routing, _, err := e.EnsureStream(ctx, "alice", ".config/routing", "owner-1")
	require.NoError(t, err)
	_, err = e.Append(ctx, routing, "routes",
		Content{Data: []byte(`{"/":"pages/home"}`), Type: "application/json"},
		nil, "owner-1")
	require.NoError(t, err)

	routes, err = e.Routing(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "pages/home", routes["/"])

	domains, _, err := e.EnsureStream(ctx, "alice", ".config/domains", "owner-1")
	require.NoError(t, err)
	_, err = e.Append(ctx, domains, "blog.example.com",
		Content{Data: []byte(`{}`), Type: "application/json"},
		nil, "owner-1")
	require.NoError(t, err)

	pod, err := e.ResolveCustomDomain(ctx, "blog.example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", pod)
	_, err = e.ResolveCustomDomain(ctx, "unknown.example.com")
	assert.True(t, apperr.Is(err, apperr.CodePodNotFound))
}

func TestListRecursive(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	_, err := e.CreatePod(ctx, "alice", "owner-1")
	require.NoError(t, err)

	blog, _, err := e.EnsureStream(ctx, "alice", "blog", "owner-1")
	require.NoError(t, err)
	drafts, _, err := e.EnsureStream(ctx, "alice", "blog/drafts", "owner-1")
	require.NoError(t, err)
	hidden, err := e.CreateStream(ctx, "alice", "blog/private", "owner-1", "private")
	require.NoError(t, err)

	_, err = e.Append(ctx, blog, "a", textContent("a"), nil, "owner-1")
	require.NoError(t, err)
	_, err = e.Append(ctx, drafts, "d", textContent("d"), nil, "owner-1")
	require.NoError(t, err)
	_, err = e.Append(ctx, hidden, "h", textContent("h"), nil, "owner-1")
	require.NoError(t, err)

	// depth-first by path; unreadable streams are skipped for outsiders
	records, err := e.ListRecursive(ctx, blog, "bob", false, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Name)
	assert.Equal(t, "d", records[1].Name)

	records, err = e.ListRecursive(ctx, blog, "owner-1", false, 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestContentNormalization(t *testing.T) {
	content, err := NormalizeContent([]byte(`{"a":1}`), "")
	require.NoError(t, err)
	assert.Equal(t, "application/json", content.Type)

	content, err = NormalizeContent([]byte("plain words"), "")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", content.Type)

	// a bare number is not tagged as JSON
	content, err = NormalizeContent([]byte("42"), "")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", content.Type)

	content, err = NormalizeContent([]byte("aGVsbG8="), "image/png")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), content.Data)
	assert.Equal(t, "image/png", content.Type)

	_, err = NormalizeContent([]byte("not base64 !!"), "image/png")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidContent))

	content, err = NormalizeContent([]byte("data:text/html;base64,PGI+aGk8L2I+"), "")
	require.NoError(t, err)
	assert.Equal(t, "text/html", content.Type)
	assert.Equal(t, []byte("<b>hi</b>"), content.Data)

	content, err = NormalizeContent([]byte("data:,hello"), "")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", content.Type)
	assert.Equal(t, []byte("hello"), content.Data)
}
