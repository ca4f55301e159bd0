package bucket

import "testing"

// BenchmarkAllow measures the performance of Allow calls
func BenchmarkAllow(b *testing.B) {
	limiter, _ := New(1000, 1000000) // High rate to avoid rejections

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			limiter.Allow()
		}
	})
}

// BenchmarkHighContention simulates a mostly-empty bucket
func BenchmarkHighContention(b *testing.B) {
	limiter, _ := New(10, 100)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			limiter.Allow()
		}
	})
}
