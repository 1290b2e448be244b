package myhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/paycheckpowerhouse/lib/myerrors"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mylog"
)

func TestResponseWriter(t *testing.T) {
	writer := NewWriter(mylog.New("myhttp"))

	t.Run("server error hides cause", func(t *testing.T) {
		response := httptest.NewRecorder()

		writer.WriteError(context.TODO(), response, 3, myerrors.NewBadGatewayError(fmt.Errorf("Invalid API Key provided: sk_test_****1234")))

		assert.Equal(t, 502, response.Code)
		assert.Equal(t, "application/json", response.Header().Get("Content-Type"))
		assert.Equal(t, "no-store", response.Header().Get("Cache-Control"))
		resp := errorResponse{}
		assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
		assert.Equal(t, errorResponse{ErrorCode: 3, Message: "Bad Gateway"}, resp)
		assert.NotContains(t, response.Body.String(), "sk_test")
	})

	t.Run("client error explains cause", func(t *testing.T) {
		response := httptest.NewRecorder()

		writer.WriteError(context.TODO(), response, 1, myerrors.NewInvalidInputError(fmt.Errorf("unknown product: X")))

		assert.Equal(t, 400, response.Code)
		resp := errorResponse{}
		assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
		assert.Equal(t, "status: 400, err: unknown product: X", resp.Message)
	})

	t.Run("success", func(t *testing.T) {
		response := httptest.NewRecorder()

		writer.Write(context.TODO(), response, 200, SuccessResponse{Message: "ok"})

		assert.Equal(t, 200, response.Code)
		assert.JSONEq(t, `{"Message":"ok"}`, response.Body.String())
	})
}
