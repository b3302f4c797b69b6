package server

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/jet/pkg/errors"
)

// Watch reloads the manifest whenever its file is written or replaced. The
// directory is watched rather than the file so that editors that save by
// rename are noticed. Close stops watching.
func (s *Server) Watch() error {
	path := s.Manifest().Path()
	if path == "" {
		return errors.New(errors.ErrCodeInvalidInput, "manifest was not loaded from a file")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.stop != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create watcher")
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "watch %s", filepath.Dir(abs))
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.watchLoop(w, filepath.Base(abs), s.stop, s.done)
	s.log.Info("watching manifest", "path", abs)
	return nil
}

func (s *Server) watchLoop(w *fsnotify.Watcher, file string, stop, done chan struct{}) {
	defer close(done)
	defer w.Close()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != file || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s.log.Debug("manifest changed", "op", ev.Op.String())
			_ = s.Reload()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Error("watch error", "err", err)
		case <-stop:
			return
		}
	}
}

// Close stops a running Watch.
func (s *Server) Close() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
	return nil
}
