package mypermobil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) interface{} {
	t.Helper()
	resp := &Response{Body: []byte(body)}
	tree, err := resp.JSON()
	require.NoError(t, err)
	return tree
}

func TestWalkItem(t *testing.T) {
	tree := decode(t, `{"a":{"c":1},"list":[{"x":"y"},{"x":"z"}],"n":42}`)

	tests := []struct {
		name    string
		item    Item
		want    interface{}
		wantErr string
	}{
		{"scalar", Item{"n"}, float64(42), ""},
		{"nested mapping", Item{"a", "c"}, float64(1), ""},
		{"sequence index", Item{"list", 1, "x"}, "z", ""},
		{"missing key", Item{"a", "b"}, nil, "b not in response"},
		{"short sequence", Item{"list", 2}, nil, "too few items in response"},
		{"negative index", Item{"list", -1}, nil, "too few items in response"},
		{"index into scalar", Item{"n", "x"}, nil, "x not in response"},
		{"string key on sequence", Item{"list", "x"}, nil, "x not in response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := walkItem(tree, tt.item)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, IsClientError(err))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWalkItemBoundaries(t *testing.T) {
	_, err := walkItem(decode(t, `{"a":{"c":1}}`), Item{"a", "b"})
	assert.True(t, IsClientError(err))

	_, err = walkItem(decode(t, `[1,2]`), Item{2})
	assert.True(t, IsClientError(err))

	v, err := walkItem(decode(t, `{"a":42}`), Item{"a"})
	require.NoError(t, err)
	assert.Equal(t, float64(42), v)
}

func TestRequestItemValidation(t *testing.T) {
	client := newAuthenticatedClient("https://api.example.com", newFakeClock())

	_, err := client.RequestItem(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no item provided")

	_, err = client.RequestItem(context.Background(), Item{"unknownItem"})
	require.Error(t, err)
	assert.True(t, IsClientError(err))
	assert.Contains(t, err.Error(), "no endpoint for item")

	_, err = client.RequestItems(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no items provided")
}

func TestRequestItemFromExplicitEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, EndpointDailyUsage, r.URL.Path)
		writeJSON(t, w, http.StatusOK, `{"distanceUnit":"km"}`)
	}))
	defer server.Close()

	client := newAuthenticatedClient(server.URL, newFakeClock())
	v, err := client.RequestItemFrom(context.Background(), UsageDistanceUnit, EndpointDailyUsage)
	require.NoError(t, err)
	assert.Equal(t, "km", v)
}

func TestRequestItemsShareEndpointFetch(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, EndpointVAUsageRecords, r.URL.Path)
		time.Sleep(100 * time.Millisecond)
		writeJSON(t, w, http.StatusOK, `{"distanceRecord": 123, "seatingRecord": 456}`)
	}))
	defer server.Close()

	client := newAuthenticatedClient(server.URL, newFakeClock())

	var wg sync.WaitGroup
	var distance, seating interface{}
	var distanceErr, seatingErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		distance, distanceErr = client.RequestItem(context.Background(), RecordsDistance)
	}()
	go func() {
		defer wg.Done()
		seating, seatingErr = client.RequestItem(context.Background(), RecordsSeating)
	}()
	wg.Wait()

	require.NoError(t, distanceErr)
	require.NoError(t, seatingErr)
	assert.Equal(t, float64(123), distance)
	assert.Equal(t, float64(456), seating)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	values, err := client.RequestItems(context.Background(), RecordsDistance, RecordsSeating)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{float64(123), float64(456)}, values)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRequestItemsFirstErrorWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"stateOfCharge": 80}`)
	}))
	defer server.Close()

	client := newAuthenticatedClient(server.URL, newFakeClock())
	_, err := client.RequestItems(context.Background(), BatteryStateOfCharge, BatteryStateOfHealth)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stateOfHealth not in response")
}

func TestRequestProductID(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr string
	}{
		{"single product", `[{"_id":"` + testProductID + `"}]`, testProductID, ""},
		{"no products", `[]`, "", "wrong number of products found"},
		{"two products", `[{"_id":"a"},{"_id":"b"}]`, "", "wrong number of products found"},
		{"not a sequence", `{"_id":"a"}`, "", "invalid response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, EndpointProducts, r.URL.Path)
				writeJSON(t, w, http.StatusOK, tt.body)
			}))
			defer server.Close()

			client := newAuthenticatedClient(server.URL, newFakeClock())
			id, err := client.RequestProductID(context.Background())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, IsAPIError(err))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestGetHelpers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case EndpointBatteryInfo:
			writeJSON(t, w, http.StatusOK, `{"stateOfCharge":80}`)
		case EndpointDailyUsage:
			writeJSON(t, w, http.StatusOK, `{"distance":3.5}`)
		case EndpointVAUsageRecords:
			writeJSON(t, w, http.StatusOK, `{"distanceRecord":10}`)
		case expandEndpoint(EndpointProductsPositions, testProductID):
			writeJSON(t, w, http.StatusOK, `{"currentPosition":{"lat":1,"lng":2}}`)
		default:
			writeJSON(t, w, http.StatusOK, `[]`)
		}
	}))
	defer server.Close()

	client := newAuthenticatedClient(server.URL, newFakeClock())
	ctx := context.Background()

	battery, err := client.GetBatteryInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(80), battery["stateOfCharge"])

	usage, err := client.GetDailyUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.5, usage["distance"])

	records, err := client.GetUsageRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(10), records["distanceRecord"])

	position, err := client.GetGPSPosition(ctx)
	require.NoError(t, err)
	assert.Contains(t, position, "currentPosition")

	_, err = client.requestObject(ctx, EndpointProducts)
	assert.True(t, IsAPIError(err))
}

func TestReturnedTreesAreCallerOwned(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		switch r.URL.Path {
		case EndpointBatteryInfo:
			writeJSON(t, w, http.StatusOK, `{"stateOfCharge":80,"cells":[1,2]}`)
		default:
			writeJSON(t, w, http.StatusOK, `{"currentPosition":{"lat":1,"lng":2}}`)
		}
	}))
	defer server.Close()

	client := newAuthenticatedClient(server.URL, newFakeClock())
	ctx := context.Background()

	info, err := client.GetBatteryInfo(ctx)
	require.NoError(t, err)
	delete(info, "stateOfCharge")
	info["cells"].([]interface{})[0] = "changed"

	charge, err := client.RequestItem(ctx, BatteryStateOfCharge)
	require.NoError(t, err)
	assert.Equal(t, float64(80), charge)

	again, err := client.GetBatteryInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{float64(1), float64(2)}, again["cells"])

	position, err := client.RequestItem(ctx, PositionsCurrentPosition)
	require.NoError(t, err)
	position.(map[string]interface{})["lat"] = "changed"

	position, err = client.RequestItem(ctx, PositionsCurrentPosition)
	require.NoError(t, err)
	assert.Equal(t, float64(1), position.(map[string]interface{})["lat"])

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
