package leakybucket

import "testing"

// BenchmarkAdd measures the performance of Add calls
func BenchmarkAdd(b *testing.B) {
	limiter, _ := New(1000, 1000000) // High rate to keep the queue draining

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			limiter.Add("bench")
		}
	})
}
