// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"flag"
	"log"

	sanitize "github.com/coreclear/sanitize"
	"github.com/coreclear/sanitize/model"
)

func main() {
	method := flag.String("method", "clear-zero", "clear-zero, clear-random, dod, gutmann, ata-secure-erase, ata-secure-erase-enhanced, crypto-erase, destroy")
	confirm := flag.Bool("confirm", false, "required for -method=destroy")
	dryRun := flag.Bool("dry-run", false, "probe capabilities and report without executing any purge command")
	flag.Parse()

	m, wipeCompatible := methodFromFlag(*method)

	for _, dev := range flag.Args() {
		dev := dev

		log.Printf("processing device %q with method %q", dev, *method)

		var (
			result model.PurgeResult
			err    error
		)

		switch {
		case *method == "destroy":
			result, err = sanitize.Destroy(context.Background(), dev, *confirm, logProgress)
		case *method == "ata-secure-erase":
			result, err = sanitize.ATASecureErase(dev, false, *dryRun)
		case *method == "ata-secure-erase-enhanced":
			result, err = sanitize.ATASecureErase(dev, true, *dryRun)
		case *method == "crypto-erase":
			result, err = sanitize.CryptoErase(context.Background(), dev, *dryRun, logProgress)
		case wipeCompatible:
			result, err = sanitize.Wipe(context.Background(), dev, m, logProgress)
		default:
			log.Fatalf("unknown method %q", *method)
		}

		if err != nil {
			log.Fatalf("failed sanitizing %q: %s (status=%s)", dev, err, result.Status)
		}

		log.Printf("completed %q: status=%s method=%s duration=%.1fs", dev, result.Status, result.Method, result.DurationSecs)
	}
}

func methodFromFlag(name string) (model.Method, bool) {
	switch name {
	case "clear-zero":
		return model.MethodClearZero, true
	case "clear-random":
		return model.MethodClearRandom, true
	case "dod":
		return model.MethodDoD, true
	case "gutmann":
		return model.MethodGutmann, true
	default:
		return model.MethodNone, false
	}
}

func logProgress(s model.ProgressSample) {
	log.Printf("pass %d/%d: %.1f%% (%.1f MB/s)", s.PassIndex+1, s.PassCount, s.Percent, s.SpeedMBps)
}
