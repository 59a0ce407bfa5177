package docs

import (
	"context"
	"fmt"
	"io"
)

// NginxMethods are the HTTP methods reported by NginxStats, in order.
var NginxMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

// MethodCount is the number of logged requests for one method.
type MethodCount struct {
	Method string
	Count  int64
}

// NginxReport summarizes a collection of nginx request logs.
type NginxReport struct {
	Total        int64
	Methods      []MethodCount
	StatusChecks int64
}

// NginxStats counts all logs, logs per method, and GET /status requests.
func NginxStats(ctx context.Context, c *Collection) (NginxReport, error) {
	var r NginxReport
	var err error
	if r.Total, err = c.CountDocuments(ctx, nil); err != nil {
		return r, err
	}
	for _, m := range NginxMethods {
		n, err := c.CountDocuments(ctx, Filter{"method": m})
		if err != nil {
			return r, err
		}
		r.Methods = append(r.Methods, MethodCount{Method: m, Count: n})
	}
	r.StatusChecks, err = c.CountDocuments(ctx, Filter{"method": "GET", "path": "/status"})
	return r, err
}

// WriteNginxStats prints r:
//
//	94778 logs
//		method GET: 93842
//		...
//	47415 status check
func WriteNginxStats(w io.Writer, r NginxReport) error {
	if _, err := fmt.Fprintf(w, "%d logs\n", r.Total); err != nil {
		return err
	}
	for _, m := range r.Methods {
		if _, err := fmt.Fprintf(w, "\tmethod %s: %d\n", m.Method, m.Count); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d status check\n", r.StatusChecks)
	return err
}
