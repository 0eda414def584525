package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cardiorisk/heart"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictStream(t *testing.T) {
	handler, metrics := newTestHandler(t, bundledModel(t))
	server := httptest.NewServer(handler)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/predict"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(referenceJSON)))
	var result heart.PredictionResult
	require.NoError(t, conn.ReadJSON(&result))
	assert.Equal(t, heart.LabelDisease, result.Label)
	assert.Equal(t, heart.MessageDisease, result.Message)

	// invalid frames get the same error body as POST /predict and keep the stream open
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"age":63}`)))
	var failure errorBody
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Equal(t, "validation failed", failure.Error)
	require.Len(t, failure.Details, heart.FeatureCount-1)
	assert.Equal(t, "sex", failure.Details[0].Field)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{not json`)))
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Contains(t, failure.Error, "malformed JSON")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(referenceJSON)))
	var again json.RawMessage
	require.NoError(t, conn.ReadJSON(&again))
	assert.JSONEq(t, `{"prediction":1,"result":"`+heart.MessageDisease+`"}`, string(again))

	assert.Equal(t, int64(1), metrics.Snapshot().WSConnections)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool {
		return metrics.Snapshot().WSConnections == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestPredictStreamRejectsPlainRequest(t *testing.T) {
	handler, _ := newTestHandler(t, &countingModel{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/ws/predict", nil))
	assert.Equal(t, 400, rr.Code)
}
