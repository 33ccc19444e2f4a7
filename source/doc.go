// Package source provisions source archives that get built locally
// as part of an installation.
//
// At the core, an [Archive] is a specification indicating the project name,
// the desired version and a url template pointing at where to obtain the
// tarball from.
//
// The url, the archive file name and the name of the extracted tree are
// templates resolved against a [Template], so the version only has to be
// specified once.
//
// Fetching is not smart about previous runs: the archive is always downloaded
// again and replaces whatever file was there. A partial download never takes the
// place of the final archive, it is written next to it with a .part suffix and
// removed on failure.
//
// No integrity check is done unless a sha256 digest is configured with [WithSHA256].
//
// example usage
//
//	talib, err := source.New(
//		"ta-lib",
//		"0.4.0",
//		"http://prdownloads.sourceforge.net/ta-lib/ta-lib-{{.Version}}-src.tar.gz",
//		source.WithTreeName("ta-lib"),
//	)
//	if err != nil {
//		return err
//	}
//
//	archive, err := talib.Fetch(ctx, "/tmp")
//	if err != nil {
//		return fmt.Errorf("failed to fetch ta-lib: %w", err)
//	}
//
//	if err := talib.Unpack(archive, "/tmp"); err != nil {
//		return fmt.Errorf("failed to unpack ta-lib: %w", err)
//	}
package source
