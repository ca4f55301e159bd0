package distributed_test

import (
	"context"
	"fmt"
	"time"

	"github.com/vnykmshr/gatekeep/pkg/ratelimit/distributed"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/store/memory"
)

// Example shows two limiters sharing one store enforcing a single limit.
func Example() {
	st, _ := memory.New(memory.Config{})

	config := distributed.Config{Store: st, Limit: 3, Window: time.Hour}
	node1, _ := distributed.New(config)
	node2, _ := distributed.New(config)

	ctx := context.Background()
	fmt.Println(node1.Allow(ctx, "api", "alice"))
	fmt.Println(node2.Allow(ctx, "api", "alice"))
	fmt.Println(node1.Allow(ctx, "api", "alice"))
	fmt.Println(node2.Allow(ctx, "api", "alice"))

	// Output:
	// true
	// true
	// true
	// false
}
