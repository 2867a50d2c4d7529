package mypermobil

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RequestItem resolves item to the endpoint serving it and returns the value
// found by walking the item's path through that endpoint's response.
func (c *Client) RequestItem(ctx context.Context, item Item) (interface{}, error) {
	if len(item) == 0 {
		return nil, clientError("no item provided")
	}
	endpoint, ok := c.table.Lookup(item)
	if !ok {
		return nil, clientError("no endpoint for item: %s", item)
	}
	return c.RequestItemFrom(ctx, item, endpoint)
}

// RequestItemFrom walks item through the response of an explicit endpoint.
func (c *Client) RequestItemFrom(ctx context.Context, item Item, endpoint string) (interface{}, error) {
	if len(item) == 0 {
		return nil, clientError("no item provided")
	}
	tree, err := c.RequestEndpoint(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return walkItem(tree, item)
}

// RequestItems resolves every item concurrently. Items served by the same
// endpoint share one backend request. The first failure is returned.
func (c *Client) RequestItems(ctx context.Context, items ...Item) ([]interface{}, error) {
	if len(items) == 0 {
		return nil, clientError("no items provided")
	}

	out := make([]interface{}, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			v, err := c.RequestItem(gctx, item)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// walkItem indexes tree with each element of item in turn.
func walkItem(tree interface{}, item Item) (interface{}, error) {
	node := tree
	for _, step := range item {
		switch n := node.(type) {
		case map[string]interface{}:
			key, ok := step.(string)
			if !ok {
				return nil, clientError("%v not in response", step)
			}
			v, ok := n[key]
			if !ok {
				return nil, clientError("%s not in response", key)
			}
			node = v
		case []interface{}:
			idx, ok := step.(int)
			if !ok {
				return nil, clientError("%v not in response", step)
			}
			if idx < 0 || idx >= len(n) {
				return nil, clientError("too few items in response: %d >= %d", idx, len(n))
			}
			node = n[idx]
		default:
			return nil, clientError("%v not in response", step)
		}
	}
	return node, nil
}

// RequestProductID returns the id of the single product linked to the
// account. It fails when the account has no product or several.
func (c *Client) RequestProductID(ctx context.Context) (string, error) {
	tree, err := c.RequestEndpoint(ctx, EndpointProducts)
	if err != nil {
		return "", err
	}
	products, ok := tree.([]interface{})
	if !ok {
		return "", apiError(0, "invalid response")
	}
	if len(products) != 1 {
		return "", apiError(0, "wrong number of products found")
	}
	v, err := walkItem(tree, ProductsID)
	if err != nil {
		return "", err
	}
	id, ok := v.(string)
	if !ok {
		return "", apiError(0, "invalid product id in response")
	}
	return id, nil
}

func (c *Client) requestObject(ctx context.Context, endpoint string) (map[string]interface{}, error) {
	tree, err := c.RequestEndpoint(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	obj, ok := tree.(map[string]interface{})
	if !ok {
		return nil, apiError(0, "invalid response")
	}
	return obj, nil
}

// GetBatteryInfo returns the whole battery-info response.
func (c *Client) GetBatteryInfo(ctx context.Context) (map[string]interface{}, error) {
	return c.requestObject(ctx, EndpointBatteryInfo)
}

// GetDailyUsage returns the whole daily usage response.
func (c *Client) GetDailyUsage(ctx context.Context) (map[string]interface{}, error) {
	return c.requestObject(ctx, EndpointDailyUsage)
}

// GetUsageRecords returns the whole usage records response.
func (c *Client) GetUsageRecords(ctx context.Context) (map[string]interface{}, error) {
	return c.requestObject(ctx, EndpointVAUsageRecords)
}

// GetGPSPosition returns the positions of the session's product.
func (c *Client) GetGPSPosition(ctx context.Context) (map[string]interface{}, error) {
	return c.requestObject(ctx, EndpointProductsPositions)
}
