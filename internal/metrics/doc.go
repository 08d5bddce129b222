// Package metrics records per-run Prometheus metrics and writes them as a
// node_exporter textfile.
//
// A one-shot CLI cannot be scraped, so the textfile collector is the
// delivery path:
//
//	m := metrics.New()
//	m.ObserveDownload(res.Size, err)
//	m.SetLastRun(ok, time.Now())
//	_ = m.WriteTextfile("/var/lib/node_exporter/textfile/audiohook.prom")
//
// Result labels are "success" or the audio error kind ("transport",
// "size_exceeded", ...).
package metrics
