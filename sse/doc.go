// Package sse streams a pipeline to an HTTP client as server-sent events.
//
// Serve drives the pipeline for the lifetime of the request: every item
// becomes an event, a failure becomes an "error" event and a client
// disconnect cancels the drive. A Tracker records open streams so shutdown
// can end them.
//
// # Usage
//
//	streams := sse.NewComponent("/stream")
//	registry.Register(streams)
//	router.GET("/stream", func(c *gin.Context) {
//	    sse.Serve(c.Writer, c.Request, pipeline.Interval(time.Second),
//	        sse.WithTracker(streams.Tracker()))
//	})
package sse
