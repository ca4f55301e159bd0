package fixedwindow_test

import (
	"fmt"
	"time"

	"github.com/vnykmshr/gatekeep/pkg/ratelimit/fixedwindow"
)

// Example demonstrates a per-minute quota.
func Example() {
	limiter, err := fixedwindow.New(3, time.Minute)
	if err != nil {
		fmt.Println(err)
		return
	}

	for i := 1; i <= 4; i++ {
		fmt.Printf("request %d: %v\n", i, limiter.Allow())
	}

	// Output:
	// request 1: true
	// request 2: true
	// request 3: true
	// request 4: false
}
