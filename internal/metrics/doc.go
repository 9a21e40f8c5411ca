// Package metrics records build, stage and route metrics.
//
// Components receive a Recorder; NoopRecorder is the default so call sites
// never check for nil. PrometheusRecorder backs `inkpress build --metrics-file`,
// which writes the registry in the text exposition format after the build.
package metrics
