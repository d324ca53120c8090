// Package codecs holds the problematic codec configuration and classifies
// probed files against it.
//
// Store is the single process-wide accessor. It persists the configuration
// in the database metadata table under the "codec_config" key and always
// hands out the latest saved value, so a classification started after an
// update sees the new lists. Results that were already aggregated are never
// reclassified.
//
// Classify is pure: the same probe result and configuration always produce
// the same Verdict. Only the first audio track is checked. Names are compared
// exactly as ffprobe reports them and an empty or unknown codec is treated as
// compatible.
package codecs
