package hubsdk

// TransferFormat selects how a DownloadFile/UploadFile command moves bytes.
type TransferFormat string

const (
	// Raw copies the payload byte-for-byte, no archive handling.
	Raw TransferFormat = "raw"
	// Tar treats the transferred payload as a tar archive to expand/collect.
	Tar TransferFormat = "tar"
)

// Command is one step of a peer session's update batch. Exactly one of the
// typed fields is meaningful per command; Kind selects which.
type Command struct {
	Kind string `json:"kind"`

	// WriteFile
	Path    string `json:"path,omitempty"`
	Content []byte `json:"content,omitempty"`

	// DownloadFile / UploadFile
	URI    string         `json:"uri,omitempty"`
	Format TransferFormat `json:"format,omitempty"`
}

const (
	kindOpen         = "open"
	kindWait         = "wait"
	kindWriteFile    = "write_file"
	kindDownloadFile = "download_file"
	kindUploadFile   = "upload_file"
)

// OpenCommand initializes the peer's container.
func OpenCommand() Command { return Command{Kind: kindOpen} }

// WaitCommand blocks the peer session until its running process exits.
func WaitCommand() Command { return Command{Kind: kindWait} }

// WriteFileCommand writes content at path inside the peer container.
func WriteFileCommand(path string, content []byte) Command {
	return Command{Kind: kindWriteFile, Path: path, Content: content}
}

// DownloadFileCommand fetches uri into path inside the peer container.
func DownloadFileCommand(uri, path string, format TransferFormat) Command {
	return Command{Kind: kindDownloadFile, URI: uri, Path: path, Format: format}
}

// UploadFileCommand pushes path from inside the peer container to uri.
func UploadFileCommand(uri, path string, format TransferFormat) Command {
	return Command{Kind: kindUploadFile, URI: uri, Path: path, Format: format}
}
