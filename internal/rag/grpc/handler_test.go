package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware"
)

type fakeService struct {
	added    map[string]string
	deleted  []string
	lastTopK int
}

func (f *fakeService) AddDocument(_ context.Context, fileName, content string) *biz.IngestResult {
	if f.added == nil {
		f.added = map[string]string{}
	}
	f.added[fileName] = content
	return &biz.IngestResult{Status: biz.StatusSuccess, DocID: "abc", ChunksCount: 2}
}

func (f *fakeService) DeleteDocument(_ context.Context, docID string) *biz.DeleteResult {
	f.deleted = append(f.deleted, docID)
	return &biz.DeleteResult{Status: biz.StatusSuccess, DeletedPoints: 2}
}

func (f *fakeService) ListDocuments(context.Context) []biz.DocumentInfo {
	return []biz.DocumentInfo{{DocID: "abc", FileName: "a.txt", ChunksCount: 2, UploadedAt: "t"}}
}

func (f *fakeService) Query(_ context.Context, _ string, topK int) *biz.QueryResult {
	f.lastTopK = topK
	return &biz.QueryResult{
		Status:      biz.StatusSuccess,
		Answer:      "answer",
		Mode:        biz.ModeRAG,
		ContextUsed: 1,
		HitInfo:     []biz.HitInfo{{Rank: 1, FileName: "a.txt", Score: 0.9, ChunkIndex: 0}},
	}
}

func (f *fakeService) PointsCount(context.Context) (int64, error) { return 0, nil }

func (f *fakeService) Stats(context.Context) map[string]any { return nil }

func newTestClient(t *testing.T, svc biz.Service) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.UnaryRecoveryInterceptor(),
		middleware.UnaryRequestIDInterceptor(),
	))
	RegisterRAGServiceServer(srv, NewHandler(svc, nil))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestAddDocument(t *testing.T) {
	svc := &fakeService{}
	client := newTestClient(t, svc)

	out, err := client.AddDocument(context.Background(), mustStruct(t, map[string]any{
		"file_name": "a.txt",
		"content":   "hello",
	}))
	require.NoError(t, err)
	assert.Equal(t, "success", out.Fields["status"].GetStringValue())
	assert.Equal(t, "abc", out.Fields["doc_id"].GetStringValue())
	assert.Equal(t, float64(2), out.Fields["chunks_count"].GetNumberValue())
	assert.Equal(t, "hello", svc.added["a.txt"])
}

func TestAddDocumentValidation(t *testing.T) {
	client := newTestClient(t, &fakeService{})

	_, err := client.AddDocument(context.Background(), mustStruct(t, map[string]any{"file_name": "a.txt"}))
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDeleteAndList(t *testing.T) {
	svc := &fakeService{}
	client := newTestClient(t, svc)

	out, err := client.DeleteDocument(context.Background(), mustStruct(t, map[string]any{"doc_id": "abc"}))
	require.NoError(t, err)
	assert.Equal(t, float64(2), out.Fields["deleted_points"].GetNumberValue())
	assert.Equal(t, []string{"abc"}, svc.deleted)

	out, err = client.ListDocuments(context.Background(), &structpb.Struct{})
	require.NoError(t, err)
	docs := out.Fields["documents"].GetListValue().GetValues()
	require.Len(t, docs, 1)
	assert.Equal(t, "a.txt", docs[0].GetStructValue().Fields["file_name"].GetStringValue())
}

func TestQuery(t *testing.T) {
	svc := &fakeService{}
	client := newTestClient(t, svc)

	out, err := client.Query(context.Background(), mustStruct(t, map[string]any{
		"question": "what?",
		"top_k":    3,
	}))
	require.NoError(t, err)
	assert.Equal(t, 3, svc.lastTopK)
	assert.Equal(t, "rag", out.Fields["mode"].GetStringValue())
	hits := out.Fields["hit_info"].GetListValue().GetValues()
	require.Len(t, hits, 1)
	assert.Equal(t, 0.9, hits[0].GetStructValue().Fields["score"].GetNumberValue())

	_, err = client.Query(context.Background(), mustStruct(t, map[string]any{"question": "q", "top_k": 100}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
