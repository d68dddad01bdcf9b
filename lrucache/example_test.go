/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"fmt"
	"log"
	"time"
)

func Example() {
	type User struct {
		ID   int
		Name string
	}

	// Make, configure and register Prometheus metrics collector.
	metricsCollector := NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{Namespace: "myservice"})
	metricsCollector.MustRegister()
	defer metricsCollector.Unregister()

	// Make LRU cache for storing maximum 1000 entries that expire in 10 minutes by default.
	cache, err := NewWithOpts[string, User](1000, metricsCollector, Options[string, User]{DefaultTTL: 10 * time.Minute})
	if err != nil {
		log.Fatal(err)
	}

	if err = cache.Put("user:1", User{1, "John"}); err != nil {
		log.Fatal(err)
	}
	if err = cache.PutWithTTL("user:2", User{2, "Jane"}, NoExpiration); err != nil {
		log.Fatal(err)
	}

	if user, found := cache.Get("user:1"); found {
		fmt.Printf("%d, %s\n", user.ID, user.Name)
	}
	if _, found := cache.Get("user:3"); !found {
		fmt.Println("user:3 not found")
	}
	fmt.Println(cache.Keys())

	stats := cache.Stats()
	fmt.Printf("hits=%d misses=%d ratio=%.2f\n", stats.Hits, stats.Misses, stats.HitRatio())

	// Output:
	// 1, John
	// user:3 not found
	// [user:1 user:2]
	// hits=1 misses=1 ratio=0.50
}
