package mypermobil_test

import (
	"context"
	"fmt"

	"github.com/ambiyansyah-risyal/mypermobil"
)

func ExampleCoordinator() {
	coordinator := mypermobil.NewCoordinator[string, int](nil, mypermobil.CoordinatorConfig{Name: "example"})

	calls := 0
	fetch := func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	}

	key := mypermobil.Key("answer", "https://api.example.com")
	first, _ := coordinator.Do(context.Background(), key, fetch)
	second, _ := coordinator.Do(context.Background(), key, fetch)

	fmt.Println(first, second, calls)
	// Output: 42 42 1
}

func ExampleParseItem() {
	item := mypermobil.ParseItem("mostRecent.odometerTotal")
	endpoint, _ := mypermobil.DefaultEndpoints.Lookup(item)

	fmt.Println(item)
	fmt.Println(endpoint)
	// Output:
	// ["mostRecent","odometerTotal"]
	// /api/v1/products/{product_id}
}
