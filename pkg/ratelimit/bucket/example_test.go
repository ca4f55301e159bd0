package bucket_test

import (
	"fmt"

	"github.com/vnykmshr/gatekeep/pkg/ratelimit/bucket"
)

// Example demonstrates burst admission from a full bucket.
func Example() {
	limiter, err := bucket.New(3, 1) // burst of 3, 1 token/sec
	if err != nil {
		fmt.Println(err)
		return
	}

	for i := 1; i <= 4; i++ {
		fmt.Printf("request %d allowed: %v\n", i, limiter.Allow())
	}

	// Output:
	// request 1 allowed: true
	// request 2 allowed: true
	// request 3 allowed: true
	// request 4 allowed: false
}

// Example_invalidConfig demonstrates construction-time validation.
func Example_invalidConfig() {
	_, err := bucket.New(10, 0)
	fmt.Println(err)

	// Output: bucket: invalid refill_rate=0 (must be positive) - value must be greater than 0
}
