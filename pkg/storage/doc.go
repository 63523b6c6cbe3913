// Package storage manages the image directory.
//
// Images are named <id>.jpg after the item's stable identifier. Writes go to a
// temporary file in the same directory which is synced and then renamed, so an
// image under its final name is always complete. Leftover temporary files from
// an interrupted run are removed with CleanTemp.
//
// Usage:
//
//	manager, err := storage.NewManager("downloaded_images")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	filename, err := manager.SaveImage("US500000087654321", body)
//	if err != nil {
//	    log.Printf("Failed to save image: %v", err)
//	}
package storage
