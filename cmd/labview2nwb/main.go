package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"labview2nwb/pkg/metadata"
	"labview2nwb/pkg/session"
	"labview2nwb/pkg/signature"
)

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "LabView export folder to import")
	metaFile := flag.String("metadata", "", "Lab metadata YAML file")
	userMetaFile := flag.String("user-metadata", "", "User override metadata YAML file")
	sigOut := flag.String("signature", "", "Write the session signature to this file")
	sigRef := flag.String("check", "", "Compare the session against this reference signature")
	flag.Parse()

	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	var meta *metadata.Metadata
	if *metaFile != "" || *userMetaFile != "" {
		var err error
		meta, err = metadata.Load(*metaFile, *userMetaFile)
		if err != nil {
			log.Fatalf("Failed to load metadata: %v", err)
		}
	}

	importer := &session.Importer{Folder: *inputDir, Meta: meta}
	records, err := importer.Import()
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	fmt.Printf("Imported session %s (%s, %s imaging)\n",
		records.SessionID, records.Version, records.Mode)
	fmt.Printf("  trials: %d\n", len(records.Trials))
	fmt.Printf("  ROIs: %d\n", len(records.Rois))
	fmt.Printf("  cycle time: %.9f s\n", records.Timings.CycleTime)

	if *sigOut != "" {
		if err := signature.Save(*sigOut, signature.Generate(records)); err != nil {
			log.Fatalf("Failed to write signature: %v", err)
		}
		fmt.Printf("Signature written to %s\n", *sigOut)
	}
	if *sigRef != "" {
		diff, err := signature.CompareToFile(records, *sigRef)
		if err != nil {
			log.Fatalf("Failed to compare signature: %v", err)
		}
		if diff != "" {
			fmt.Printf("Session differs from reference signature:\n%s", diff)
			os.Exit(1)
		}
		fmt.Println("Session matches reference signature")
	}
}
