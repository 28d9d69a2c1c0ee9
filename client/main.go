package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/ericli/autotrader/broker"
	"github.com/ericli/autotrader/common"
	"github.com/ericli/autotrader/events"
	"github.com/ericli/autotrader/execution"
	"github.com/ericli/autotrader/marketdata"
	"github.com/ericli/autotrader/model"
)

var (
	endpoint = flag.String("endpoint", "", "Operation to run. One of: FetchAll, Submit, Status, Cancel.")
	body     = flag.String("body", "", "Order request body in JSON, for Submit.")
	orderID  = flag.String("order_id", "", "Broker order id, for Status and Cancel.")
	start    = flag.String("start", "", "RFC3339 start time for FetchAll. Defaults to 1000 minutes ago.")
	publish  = flag.Bool("publish", false, "Publish results to the Kafka event bus.")
)

// Exercises the glue layer end to end. Examples:
// ./client --endpoint FetchAll --start 2026-08-28T14:30:00Z
// ./client --endpoint Submit --body '{"symbol":"AAPL","side":"buy","quantity":10,"type":"market"}'
// ./client --endpoint Status --order_id 61e69015-8549-4bfd-b9c3-01e75843f47d
func main() {
	flag.Parse()

	var publisher *events.Publisher
	if *publish {
		var err error
		publisher, err = events.NewPublisher()
		if err != nil {
			log.Fatalf("Failed to create event publisher: [%v]", err)
		}
		defer publisher.Close()
	}

	switch strings.ToLower(*endpoint) {
	case "fetchall":
		fetchAll(publisher)
	case "submit":
		runExecutor(publisher, func(ctx context.Context, exec *execution.Executor) {
			submitOrder(ctx, exec)
		})
	case "status":
		runExecutor(publisher, func(ctx context.Context, exec *execution.Executor) {
			result, ok := exec.OrderStatus(ctx, *orderID)
			if !ok {
				log.Fatalf("No status available for order [%s]", *orderID)
			}
			printJSON("OrderResult", result)
		})
	case "cancel":
		runExecutor(publisher, func(ctx context.Context, exec *execution.Executor) {
			log.Printf("Cancel [%s]: %t", *orderID, exec.CancelOrder(ctx, *orderID))
		})
	default:
		log.Fatalf("Unrecognized endpoint: [%s]", *endpoint)
	}
}

func fetchAll(publisher *events.Publisher) {
	client, err := marketdata.New(marketdata.ConfigFromEnv())
	if err != nil {
		log.Fatalf("Failed to create market data client: [%v]", err)
	}

	from := time.Now().Add(-1000 * time.Minute)
	if *start != "" {
		from, err = time.Parse(time.RFC3339, *start)
		if err != nil {
			log.Fatalf("Invalid --start: [%v]", err)
		}
	}

	frame := client.FetchAll(context.Background(), from)
	log.Printf("Fetched %d bars for %d symbols", frame.Len(), len(client.Symbols()))

	for i := 0; i < frame.Len(); i++ {
		bar := frame.Row(i)
		client.UpdateCache(bar)
		if publisher != nil {
			if err := publisher.PublishBar(bar); err != nil {
				log.Printf("Failed to publish bar for %s: %v", bar.Symbol, err)
			}
		}
	}
}

func runExecutor(publisher *events.Publisher, fn func(context.Context, *execution.Executor)) {
	baseURL, _ := common.GetEnv("BROKER_BASE_URL", "")
	api := broker.NewClient(broker.CredentialsFromEnv(), baseURL)
	exec := execution.New(execution.ConfigFromEnv(), api)
	if publisher != nil {
		exec.SetEventSink(publisher)
	}
	fn(context.Background(), exec)
}

func submitOrder(ctx context.Context, exec *execution.Executor) {
	var req model.OrderRequest
	if err := json.Unmarshal([]byte(*body), &req); err != nil {
		log.Fatalf("Invalid --body: [%v]", err)
	}

	result := exec.SubmitOrder(ctx, req)
	printJSON("OrderResult", result)
}

func printJSON(label string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode %s: [%v]", label, err)
	}
	log.Printf("%s: %s", label, data)
}
