package coupang

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/config"
	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/pkg/errors"
)

func TestSignedDateAndSignature(t *testing.T) {
	at := time.Date(2024, 3, 7, 9, 5, 1, 0, time.FixedZone("KST", 9*3600))
	assert.Equal(t, "240307T000501Z", SignedDate(at))

	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	assert.Equal(t, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8",
		Signature("key", "The quick brown fox ", "jumps over ", "the lazy ", "dog"))
}

func TestSigner_Authorization(t *testing.T) {
	s := NewSigner("ak", "sk")
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	got := s.Authorization("GET", "/v2/x", "a=1")
	want := "CEA algorithm=HmacSHA256, access-key=ak, signed-date=240102T030405Z, signature=" +
		Signature("sk", "240102T030405Z", "GET", "/v2/x", "a=1")
	assert.Equal(t, want, got)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.CoupangConfig{
		BaseURL:           srv.URL,
		AccessKey:         "ak",
		SecretKey:         "sk",
		VendorID:          "A00012345",
		RequestsPerSecond: 1000,
	}, zap.NewNop())
}

var authRe = regexp.MustCompile(`^CEA algorithm=HmacSHA256, access-key=ak, signed-date=\d{6}T\d{6}Z, signature=[0-9a-f]{64}$`)

func TestClient_CreateListing(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, sellerProductsPath, r.URL.Path)
		assert.Equal(t, "vendorId=A00012345", r.URL.RawQuery)
		assert.Regexp(t, authRe, r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		_, _ = w.Write([]byte(`{"code":"SUCCESS","message":"","data":15015843876}`))
	})

	res, err := c.CreateListing(context.Background(), &domain.ListingPayload{VendorID: "A00012345", SellerProductName: "텀블러"})
	require.NoError(t, err)
	assert.Equal(t, int64(15015843876), res.SellerProductID)
	assert.Equal(t, "텀블러", gotBody["sellerProductName"])
}

func TestClient_CreateListingRejectedKeepsBodyVerbatim(t *testing.T) {
	body := `{"code":"ERROR","message":"옵션 가격이 올바르지 않습니다."}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	})

	_, err := c.CreateListing(context.Background(), &domain.ListingPayload{VendorID: "A00012345"})
	var rej *errors.ErrDestinationRejected
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, http.StatusBadRequest, rej.Status)
	assert.Equal(t, body, rej.Body)
	assert.Equal(t, errors.ReasonDestinationRejected, errors.Reason(err))
}

func TestClient_CreateListingWithoutIDIsRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"ERROR","data":null}`))
	})
	_, err := c.CreateListing(context.Background(), &domain.ListingPayload{VendorID: "A00012345"})
	assert.Equal(t, errors.ReasonDestinationRejected, errors.Reason(err))
}

func TestClient_CatalogHelpers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/providers/seller_api/apis/api/v1/marketplace/meta/category-related-metas/display-category-codes/62634":
			_, _ = w.Write([]byte(`{"code":"SUCCESS","data":{}}`))
		case "/v2/providers/seller_api/apis/api/v1/marketplace/meta/category-related-metas/display-category-codes/1":
			w.WriteHeader(http.StatusNotFound)
		case predictPath:
			_, _ = w.Write([]byte(`{"code":200,"data":{"predictedCategoryId":"63950","predictedCategoryName":"텀블러"}}`))
		case "/v2/providers/seller_api/apis/api/v1/marketplace/vendors/A00012345/check-auto-category-agreed":
			_, _ = w.Write([]byte(`{"code":"SUCCESS","data":false}`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	})
	ctx := context.Background()

	ok, err := c.CategoryExists(ctx, 62634)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.CategoryExists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	id, err := c.SuggestCategory(ctx, "텀블러", "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(63950), id)

	agreed, err := c.AutoCategoryAgreed(ctx)
	require.NoError(t, err)
	assert.False(t, agreed)
}

func TestClient_RequestApprovalAndStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == sellerProductsPath+"/77/approvals":
			_, _ = w.Write([]byte(`{"code":"SUCCESS","data":77}`))
		case r.Method == http.MethodGet && r.URL.Path == sellerProductsPath+"/77":
			_, _ = w.Write([]byte(`{"code":"SUCCESS","data":{"statusName":"승인완료","productId":9001}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	_, err := c.RequestApproval(ctx, 77)
	require.NoError(t, err)

	resp, err := c.GetListing(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStateApproved, ListingStatus(resp.Body))
	pid, ok := ProductID(resp.Body)
	assert.True(t, ok)
	assert.Equal(t, "https://www.coupang.com/vp/products/9001", ProductURL(pid))

	_, err = c.RequestApproval(ctx, 78)
	assert.Equal(t, errors.ReasonDestinationRejected, errors.Reason(err))
}

func TestClient_GetCategoryTree(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"SUCCESS","data":{"displayItemCategoryCode":0,"name":"ROOT","child":[
			{"displayItemCategoryCode":10,"name":"주방용품","child":[{"displayItemCategoryCode":11,"name":"텀블러","child":[]}]}
		]}}`))
	})
	tree, err := c.GetCategoryTree(context.Background())
	require.NoError(t, err)
	require.Len(t, tree.Child, 1)
	assert.Equal(t, int64(11), tree.Child[0].Child[0].Code)
}

func TestResponse_JSON(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, string((&Response{Body: []byte(`{"a":1}`)}).JSON()))
	assert.Equal(t, `"bad gateway"`, string((&Response{Body: []byte(`bad gateway`)}).JSON()))
}
