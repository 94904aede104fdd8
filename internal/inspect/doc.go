// Package inspect extracts identifying metadata from collected artifacts.
//
// Downloaded images can embed EXIF metadata: GPS coordinates, camera
// serial numbers, author names, editing software, timestamps. Any of
// these can tie an artifact to a person, a device, or a place, so the
// inspector surfaces them as findings with the shared severity model.
//
// Inspection runs over local bytes only. Nothing is re-fetched, so the
// inspector can never leak traffic outside the collection path.
package inspect
