package leakybucket_test

import (
	"fmt"

	"github.com/vnykmshr/gatekeep/pkg/ratelimit/leakybucket"
)

// Example demonstrates overflow once the queue is full.
func Example() {
	limiter, err := leakybucket.New(2, 1) // queue of 2, drains 1 req/sec
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, id := range []string{"a", "b", "c"} {
		fmt.Printf("%s accepted: %v\n", id, limiter.Add(id))
	}
	fmt.Println("pending:", limiter.Pending())

	// Output:
	// a accepted: true
	// b accepted: true
	// c accepted: false
	// pending: [a b]
}
