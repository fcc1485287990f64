package benchmark

// Memoize caches fn's result per argument for the lifetime of the returned
// function. The cache is never evicted, so use it only for bounded inputs
// in short-lived processes. Multi-argument functions can use a comparable
// struct as key.
func Memoize[K comparable, V any](fn func(K) V) func(K) V {
	cache := make(map[K]V)

	return func(k K) V {
		if v, ok := cache[k]; ok {
			return v
		}

		v := fn(k)
		cache[k] = v

		return v
	}
}

// MemoizeErr is Memoize for fallible functions. Failed calls are not
// cached and are retried on the next call with the same key.
func MemoizeErr[K comparable, V any](fn func(K) (V, error)) func(K) (V, error) {
	cache := make(map[K]V)

	return func(k K) (V, error) {
		if v, ok := cache[k]; ok {
			return v, nil
		}

		v, err := fn(k)
		if err != nil {
			return v, err
		}

		cache[k] = v

		return v, nil
	}
}
