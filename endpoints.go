package mypermobil

import (
	"fmt"
	"strconv"
	"strings"
)

// Backend paths, relative to a region base URL.
const (
	EndpointApplicationLinks           = "/api/v1/users/applicationlinks"
	EndpointApplicationAuthentications = "/api/v1/users/applicationauthentications"

	EndpointBatteryInfo       = "/api/v1/products/battery-info"
	EndpointDailyUsage        = "/api/v1/products/voiceaccess/dailyusage"
	EndpointVAChargeTime      = "/api/v1/products/voiceaccess/chargetime"
	EndpointVAChairStatus     = "/api/v1/products/voiceaccess/chairstatus"
	EndpointVAUsageRecords    = "/api/v1/products/voiceaccess/usagerecords"
	EndpointProducts          = "/api/v1/products"
	EndpointProductByID       = "/api/v1/products/{product_id}"
	EndpointProductsPositions = "/api/v1/products/{product_id}/positions"

	// GetRegionsURL lists every region; it needs no authentication.
	GetRegionsURL = "https://cwcprod.permobil.com/api/v1/regions?includeFlags=on"

	productIDPlaceholder = "{product_id}"
)

// Item is a path into a decoded response: string elements index mappings,
// int elements index sequences.
type Item []interface{}

// Key is the canonical form of the path used by the endpoint table.
func (i Item) Key() string {
	var b strings.Builder
	b.WriteByte('[')
	for n, k := range i {
		if n > 0 {
			b.WriteByte(',')
		}
		switch v := k.(type) {
		case string:
			b.WriteString(strconv.Quote(v))
		case int:
			b.WriteString(strconv.Itoa(v))
		default:
			fmt.Fprintf(&b, "%T(%v)", v, v)
		}
	}
	b.WriteByte(']')
	return b.String()
}

func (i Item) String() string { return i.Key() }

// Known items.
var (
	BatteryStateOfHealth      = Item{"stateOfHealth"}
	BatteryStateOfCharge      = Item{"stateOfCharge"}
	BatteryCharging           = Item{"charging"}
	BatteryChargeTimeLeft     = Item{"chargeTimeLeft"}
	BatteryDistanceLeft       = Item{"distanceLeft"}
	BatteryLocalDistanceLeft  = Item{"localDistanceLeft"}
	BatteryIndoorDriveTime    = Item{"indoorDriveTime"}
	BatteryMaxIndoorDriveTime = Item{"maxIndoorDriveTime"}
	BatteryDistanceUnit       = Item{"distanceUnit"}
	BatteryMaxAmpereHours     = Item{"maxAmpereHours"}
	BatteryAmpereHoursLeft    = Item{"ampereHoursLeft"}
	BatteryMaxDistanceLeft    = Item{"maxDistanceLeft"}
	// BatteryTimestamp reads the same field as BatteryLocalTimestamp.
	BatteryTimestamp          = Item{"localTimestamp"}
	BatteryLocalTimestamp     = Item{"localTimestamp"}

	UsageDistance     = Item{"distance"}
	UsageDistanceUnit = Item{"distanceUnit"}
	UsageAdjustments  = Item{"adjustments"}

	ChargeTimeUnknown         = Item{"unknown"}
	ChargeChargingNow         = Item{"chargingNow"}
	ChargeChargeTimeLeft      = Item{"chargeTimeLeft"}
	ChargeTimeLeftMinutes     = Item{"chargeTimeLeft", "minutes"}
	ChargeTimeLeftHours       = Item{"chargeTimeLeft", "hours"}
	StatusStatus              = Item{"status"}
	RecordsDistance           = Item{"distanceRecord"}
	RecordsDistanceUnit       = Item{"distanceUnit"}
	RecordsDistanceDate       = Item{"distanceRecordDate"}
	RecordsSeating            = Item{"seatingRecord"}
	RecordsSeatingDate        = Item{"seatingRecordDate"}
	ProductsID                = Item{0, "_id"}
	ProductModel              = Item{"model"}
	ProductOdometerTotal      = Item{"mostRecent", "odometerTotal"}
	ProductOdometerTrip       = Item{"mostRecent", "odometerTrip"}
	PositionsCurrentPosition  = Item{"currentPosition"}
	PositionsPreviousPosition = Item{"previousPosition"}
)

// EndpointSpec lists the items an endpoint is known to return.
type EndpointSpec struct {
	Path  string
	Items []Item
}

// EndpointTable maps endpoints to their items and items back to the endpoint
// serving them. When several endpoints list the same item, the one declared
// first wins. The table is read-only once built.
type EndpointTable struct {
	specs   []EndpointSpec
	byPath  map[string]int
	reverse map[string]string
}

// NewEndpointTable builds a table; declaration order decides ties.
func NewEndpointTable(specs ...EndpointSpec) *EndpointTable {
	t := &EndpointTable{
		specs:   make([]EndpointSpec, 0, len(specs)),
		byPath:  make(map[string]int, len(specs)),
		reverse: make(map[string]string),
	}
	for _, spec := range specs {
		items := make([]Item, len(spec.Items))
		copy(items, spec.Items)
		t.byPath[spec.Path] = len(t.specs)
		t.specs = append(t.specs, EndpointSpec{Path: spec.Path, Items: items})
		for _, item := range items {
			if _, taken := t.reverse[item.Key()]; !taken {
				t.reverse[item.Key()] = spec.Path
			}
		}
	}
	return t
}

// Lookup returns the endpoint serving item.
func (t *EndpointTable) Lookup(item Item) (string, bool) {
	endpoint, ok := t.reverse[item.Key()]
	return endpoint, ok
}

// Candidates returns every endpoint listing item, in declaration order.
// Lookup always returns the first.
func (t *EndpointTable) Candidates(item Item) []string {
	key := item.Key()
	var out []string
	for _, spec := range t.specs {
		for _, it := range spec.Items {
			if it.Key() == key {
				out = append(out, spec.Path)
				break
			}
		}
	}
	return out
}

// Items returns the items declared for endpoint.
func (t *EndpointTable) Items(endpoint string) ([]Item, bool) {
	i, ok := t.byPath[endpoint]
	if !ok {
		return nil, false
	}
	return t.specs[i].Items, true
}

// Endpoints returns the endpoint paths in declaration order.
func (t *EndpointTable) Endpoints() []string {
	out := make([]string, len(t.specs))
	for i, spec := range t.specs {
		out[i] = spec.Path
	}
	return out
}

// DefaultEndpoints is the table of the public backend.
var DefaultEndpoints = NewEndpointTable(
	EndpointSpec{Path: EndpointBatteryInfo, Items: []Item{
		BatteryStateOfHealth,
		BatteryStateOfCharge,
		BatteryCharging,
		BatteryChargeTimeLeft,
		BatteryDistanceLeft,
		BatteryLocalDistanceLeft,
		BatteryIndoorDriveTime,
		BatteryMaxIndoorDriveTime,
		BatteryDistanceUnit,
		BatteryMaxAmpereHours,
		BatteryAmpereHoursLeft,
		BatteryMaxDistanceLeft,
		BatteryTimestamp,
		BatteryLocalTimestamp,
	}},
	EndpointSpec{Path: EndpointDailyUsage, Items: []Item{
		UsageDistance,
		UsageDistanceUnit,
		UsageAdjustments,
	}},
	EndpointSpec{Path: EndpointVAChargeTime, Items: []Item{
		ChargeTimeUnknown,
		ChargeChargingNow,
		ChargeChargeTimeLeft,
		ChargeTimeLeftMinutes,
		ChargeTimeLeftHours,
	}},
	EndpointSpec{Path: EndpointVAChairStatus, Items: []Item{
		StatusStatus,
	}},
	EndpointSpec{Path: EndpointVAUsageRecords, Items: []Item{
		RecordsDistance,
		RecordsDistanceUnit,
		RecordsDistanceDate,
		RecordsSeating,
		RecordsSeatingDate,
	}},
	EndpointSpec{Path: EndpointProducts, Items: []Item{
		ProductsID,
	}},
	EndpointSpec{Path: EndpointProductByID, Items: []Item{
		ProductModel,
		ProductOdometerTotal,
		ProductOdometerTrip,
	}},
	EndpointSpec{Path: EndpointProductsPositions, Items: []Item{
		PositionsCurrentPosition,
		PositionsPreviousPosition,
	}},
)

// expandEndpoint fills the product id placeholder.
func expandEndpoint(endpoint, productID string) string {
	return strings.ReplaceAll(endpoint, productIDPlaceholder, productID)
}

// ParseItem reads a dotted item path such as "mostRecent.odometerTotal" or
// "0._id". Elements made only of digits become sequence indices.
func ParseItem(s string) Item {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	item := make(Item, len(parts))
	for i, part := range parts {
		if n, err := strconv.Atoi(part); err == nil && n >= 0 {
			item[i] = n
			continue
		}
		item[i] = part
	}
	return item
}
