// Package httpclient builds and executes the benchmark's HTTP requests.
//
// A [RequestBuilder] turns the configured method, headers, body and auth into
// a fresh *http.Request for every attempt. Bodies are dropped for GET and HEAD
// even when one is configured.
//
//	builder, err := httpclient.NewRequestBuilderWithAuth(cfg, provider)
//	client := httpclient.NewClient(httpclient.ClientOptionsFromConfig(cfg))
//	exec := httpclient.NewExecutor(client, builder)
//	outcome := exec.Do(ctx)
//
// [Executor.Do] never returns an error. Transport failures are reported in
// the outcome as a [metrics.ErrorKind] chosen by [Classify]; HTTP error
// statuses are reported as unsuccessful outcomes carrying the status code.
package httpclient
