package sagemaker

// Reconcile reports the status of every requested name. Names present in the
// live listing come first, in listing order, with their live status. The
// remaining names follow with StatusNonexistent, in first-seen request order.
// Duplicate requested names are reported once.
func Reconcile(requested []string, live []ResourceState) []EndpointStatus {
	want := make(map[string]bool, len(requested))
	for _, name := range requested {
		want[name] = true
	}

	out := make([]EndpointStatus, 0, len(want))
	seen := make(map[string]bool, len(want))
	for _, r := range live {
		if want[r.Name] && !seen[r.Name] {
			out = append(out, EndpointStatus{Name: r.Name, Status: r.Status})
			seen[r.Name] = true
		}
	}
	for _, name := range requested {
		if !seen[name] {
			out = append(out, EndpointStatus{Name: name, Status: StatusNonexistent})
			seen[name] = true
		}
	}
	return out
}

// StatusOf returns the reconciled status for all live endpoints.
func StatusOf(live []ResourceState) []EndpointStatus {
	out := make([]EndpointStatus, 0, len(live))
	for _, r := range live {
		out = append(out, EndpointStatus{Name: r.Name, Status: r.Status})
	}
	return out
}
