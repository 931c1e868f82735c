package rm024

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"
)

// Firmware upgrade limits.
const (
	DefaultChunkSize = 128
	MaxChunkSize     = 0xff
	MaxChunkAttempts = 3
	FlashEnd         = 0x3c00
)

// Chunk is one flash write of a firmware job.
type Chunk struct {
	Address uint16
	Data    []byte
}

// ChunkResult records one attempt to write a chunk.
type ChunkResult struct {
	Address uint16
	Attempt int
	Result  WriteResult
	Err     error
}

// ProgressFunc reports bytes written out of total.
type ProgressFunc func(written, total int)

// FirmwareJob uploads one firmware image.
type FirmwareJob struct {
	Image  string
	Chunks []Chunk
	// Verify reads back every chunk after writing it.
	Verify     bool
	OnProgress ProgressFunc

	Stage   Stage
	Results []ChunkResult
	Decrypt DecryptResult
	Final   Status
	Err     error
}

// NewFirmwareJob splits an image into chunks.
func NewFirmwareJob(image string, data []byte, chunkSize int) (*FirmwareJob, error) {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize < 0 || chunkSize > MaxChunkSize {
		return nil, fmt.Errorf("%w: chunk size %d", ErrInvalidArgument, chunkSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image %s", ErrInvalidArgument, image)
	}
	if len(data) > FlashEnd {
		return nil, fmt.Errorf("%w: image %s has %d bytes, flash holds %d", ErrInvalidArgument, image, len(data), FlashEnd)
	}
	job := &FirmwareJob{Image: image}
	for addr := 0; addr < len(data); addr += chunkSize {
		end := addr + chunkSize
		if end > len(data) {
			end = len(data)
		}
		job.Chunks = append(job.Chunks, Chunk{Address: uint16(addr), Data: data[addr:end]})
	}
	return job, nil
}

// LoadFirmwareJob reads an image file into a job.
func LoadFirmwareJob(path string, chunkSize int) (*FirmwareJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewFirmwareJob(filepath.Base(path), data, chunkSize)
}

// Size returns the image size.
func (j *FirmwareJob) Size() int {
	size := 0
	for _, c := range j.Chunks {
		size += len(c.Data)
	}
	return size
}

// RunFirmwareUpgrade erases flash, uploads the job, decrypts the image,
// resets the radio and finally re-enters command mode to verify the new
// image. The session is consumed once the radio is reset; an abort before
// that leaves the session open.
func (s *Session) RunFirmwareUpgrade(job *FirmwareJob) error {
	if job.Stage != StagePending {
		return ErrJobFinished
	}
	if err := s.acquire(); err != nil {
		return err
	}
	s.link.setState(FirmwareUpgrade)
	glog.Infof("rm024: upgrading firmware %s, %d bytes", job.Image, job.Size())

	err := s.upload(job)
	if err == nil {
		job.Stage = StageReset
		err = s.reset()
	}
	if !s.closed {
		s.link.setState(InCommand)
	}
	s.lock.Unlock()

	if err == nil {
		err = s.postVerify(job)
	}
	if err != nil {
		job.Stage, job.Err = StageAborted, err
		glog.Errorf("rm024: firmware %s: %v", job.Image, err)
		return err
	}
	job.Stage = StageCompleted
	glog.Infof("rm024: firmware %s upgraded, %v", job.Image, job.Final)
	return nil
}

func (s *Session) upload(job *FirmwareJob) error {
	job.Stage = StageErase
	if err := s.eraseFlash(); err != nil {
		return &FirmwareUpgradeError{Stage: StageErase, Recovery: RecoveryRetry, Err: err}
	}

	total, written := job.Size(), 0
	for _, chunk := range job.Chunks {
		job.Stage = StageWrite
		if err := s.writeChunk(job, chunk); err != nil {
			return err
		}
		if job.Verify {
			job.Stage = StageVerify
			if err := s.verifyChunk(chunk); err != nil {
				return err
			}
		}
		written += len(chunk.Data)
		if fn := job.OnProgress; fn != nil {
			fn(written, total)
		}
	}

	job.Stage = StageDecrypt
	result, err := s.decrypt()
	job.Decrypt = result
	if err != nil {
		return &FirmwareUpgradeError{Stage: StageDecrypt, Recovery: RecoveryRetry, Err: err}
	}
	switch result {
	case DecryptNoError:
		return nil
	case DecryptIntegrityError:
		return &FirmwareUpgradeError{Stage: StageDecrypt, Result: byte(result), Recovery: RecoveryReErase}
	default:
		return &FirmwareUpgradeError{Stage: StageDecrypt, Result: byte(result), Recovery: RecoveryRetry}
	}
}

func (s *Session) writeChunk(job *FirmwareJob, chunk Chunk) error {
	var last ChunkResult
	for attempt := 1; attempt <= MaxChunkAttempts; attempt++ {
		result, err := s.writeFlash(chunk.Address, chunk.Data)
		last = ChunkResult{Address: chunk.Address, Attempt: attempt, Result: result, Err: err}
		job.Results = append(job.Results, last)
		if err == nil && result == WriteNoError {
			return nil
		}
		if err != nil {
			glog.Warningf("rm024: write 0x%04x attempt %d: %v", chunk.Address, attempt, err)
		} else {
			glog.Warningf("rm024: write 0x%04x attempt %d: %v", chunk.Address, attempt, result)
		}
	}
	return &FirmwareUpgradeError{
		Stage:    StageWrite,
		Address:  chunk.Address,
		Result:   byte(last.Result),
		Attempts: MaxChunkAttempts,
		Recovery: RecoveryReErase,
		Err:      last.Err,
	}
}

func (s *Session) verifyChunk(chunk Chunk) error {
	data, result, err := s.readFlash(chunk.Address, len(chunk.Data))
	if err == nil && result != ReadNoError {
		err = &ControlError{Op: "flash read", Kind: ErrProtocolReported, Code: byte(result)}
	}
	if err == nil && !bytes.Equal(data, chunk.Data) {
		err = fmt.Errorf("read back mismatch: expect [% x], got [% x]", chunk.Data, data)
	}
	if err != nil {
		return &FirmwareUpgradeError{Stage: StageVerify, Address: chunk.Address, Result: byte(result), Recovery: RecoveryReErase, Err: err}
	}
	return nil
}

func (s *Session) postVerify(job *FirmwareJob) error {
	job.Stage = StagePostVerify
	ns, err := s.link.Enter()
	if err != nil {
		return &FirmwareUpgradeError{Stage: StagePostVerify, Recovery: RecoveryAlternateImage, Err: err}
	}
	status, err := ns.VerifyImage()
	if exitErr := ns.Exit(); exitErr != nil {
		glog.Warningf("rm024: after verify: %v", exitErr)
	}
	if err != nil {
		return &FirmwareUpgradeError{Stage: StagePostVerify, Recovery: RecoveryAlternateImage, Err: err}
	}
	job.Final = status
	return nil
}

// EraseFlash erases the firmware upload area.
func (s *Session) EraseFlash() error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.lock.Unlock()
	return s.eraseFlash()
}

// WriteFlash writes data at addr of the upload area.
func (s *Session) WriteFlash(addr uint16, data []byte) (WriteResult, error) {
	if err := s.acquire(); err != nil {
		return 0, err
	}
	defer s.lock.Unlock()
	return s.writeFlash(addr, data)
}

// ReadFlash reads n bytes at addr of the upload area. Once the image is
// decrypted it can't be read back.
func (s *Session) ReadFlash(addr uint16, n int) ([]byte, ReadResult, error) {
	if err := s.acquire(); err != nil {
		return nil, 0, err
	}
	defer s.lock.Unlock()
	return s.readFlash(addr, n)
}

// DecryptImage decrypts the uploaded image, it's loaded on next reset.
func (s *Session) DecryptImage() (DecryptResult, error) {
	if err := s.acquire(); err != nil {
		return 0, err
	}
	defer s.lock.Unlock()
	return s.decrypt()
}

func flashRange(addr uint16, n int) error {
	if n <= 0 || n > maxFlashLength || int(addr)+n > FlashEnd {
		return fmt.Errorf("%w: flash range 0x%04x+%d", ErrInvalidArgument, addr, n)
	}
	return nil
}

func (s *Session) eraseFlash() error {
	expected := []byte{prefix, opEraseFlash}
	resp, err := s.exchange("flash erase", FirmwareUpgrade, expected, len(expected), s.link.timeouts.Flash)
	if err != nil {
		return err
	}
	if !bytes.Equal(resp, expected) {
		return s.unexpected("flash erase", expected, resp)
	}
	return nil
}

func (s *Session) writeFlash(addr uint16, data []byte) (WriteResult, error) {
	if err := flashRange(addr, len(data)); err != nil {
		return 0, err
	}
	n := len(data)
	req := append([]byte{prefix, opWriteFlash, byte(addr >> 8), byte(addr), byte(n >> 8), byte(n)}, data...)
	resp, err := s.exchange("flash write", FirmwareUpgrade, req, 5, s.link.timeouts.Flash)
	if err != nil {
		return 0, err
	}
	result := WriteResult(resp[2])
	expected := []byte{prefix, opWriteFlash, resp[2], byte(addr >> 8), byte(addr)}
	if !bytes.Equal(resp, expected) {
		return result, s.unexpected("flash write", expected, resp)
	}
	return result, nil
}

func (s *Session) readFlash(addr uint16, n int) ([]byte, ReadResult, error) {
	if err := flashRange(addr, n); err != nil {
		return nil, 0, err
	}
	req := []byte{prefix, opReadFlash, byte(addr >> 8), byte(addr), byte(n >> 8), byte(n)}
	resp, err := s.exchange("flash read", FirmwareUpgrade, req, 5, s.link.timeouts.Flash)
	if err != nil {
		return nil, 0, err
	}
	result := ReadResult(resp[2])
	expected := []byte{prefix, opReadFlash, resp[2], byte(addr >> 8), byte(addr)}
	if !bytes.Equal(resp, expected) {
		return nil, result, s.unexpected("flash read", expected, resp)
	}
	if result != ReadNoError {
		return nil, result, nil
	}
	data, err := s.link.readFull(n, s.link.timeouts.Flash)
	if err != nil {
		s.dirty = true
		if errors.Is(err, ErrTimeout) {
			err = &ControlError{Op: "flash read", Kind: ErrTimeout, Actual: data}
		}
		return data, result, err
	}
	return data, result, nil
}

func (s *Session) decrypt() (DecryptResult, error) {
	resp, err := s.exchange("decrypt", FirmwareUpgrade, []byte{prefix, opDecrypt}, 3, s.link.timeouts.Flash)
	if err != nil {
		return 0, err
	}
	if resp[0] != prefix || resp[1] != opDecrypt {
		return 0, s.unexpected("decrypt", []byte{prefix, opDecrypt}, resp)
	}
	return DecryptResult(resp[2]), nil
}

// UpgradeFirmware runs jobs in order until one completes. Jobs after the
// first are alternate images, tried only when the previous one failed the
// post reset verification. s may be nil or ended, a session is entered as
// needed. The last job run is returned.
func (l *Link) UpgradeFirmware(s *Session, jobs ...*FirmwareJob) (*FirmwareJob, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no firmware image", ErrInvalidArgument)
	}
	for i, job := range jobs {
		if s == nil || s.Closed() {
			var err error
			if s, err = l.Enter(); err != nil {
				return job, err
			}
		}
		err := s.RunFirmwareUpgrade(job)
		if err == nil {
			return job, nil
		}
		var fe *FirmwareUpgradeError
		if !errors.As(err, &fe) || fe.Recovery != RecoveryAlternateImage || i+1 == len(jobs) {
			return job, err
		}
		glog.Warningf("rm024: %s failed verification, trying %s", job.Image, jobs[i+1].Image)
	}
	return nil, nil
}
