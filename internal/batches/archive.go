package batches

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
)

const archiveDirName = "archives"

// ArchiveFile is where the archive of batchID lives under workDir.
func ArchiveFile(workDir, batchID string) string {
	return filepath.Join(workDir, archiveDirName, batchID+".zip")
}

// ArchiveURL is the API path that downloads a batch archive.
func ArchiveURL(batchID string) string {
	return "/api/v1/batches/" + batchID + "/archive"
}

// writeArchive zips files flat into dest. The archive appears only once complete.
func writeArchive(dest string, files []string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".archive-*.zip")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	for _, path := range files {
		if err = addFile(zw, path); err != nil {
			return err
		}
	}
	if err = zw.Close(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

func addFile(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
