package slidinglog_test

import (
	"fmt"
	"time"

	"github.com/vnykmshr/gatekeep/pkg/ratelimit/slidinglog"
)

func Example() {
	limiter, err := slidinglog.New(2, time.Second)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(limiter.Allow(), limiter.Allow(), limiter.Allow())
	fmt.Println("in window:", limiter.Len())

	// Output:
	// true true false
	// in window: 2
}
