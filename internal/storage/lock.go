package storage

import (
	"errors"
	"fmt"

	daemon "github.com/sevlyar/go-daemon"
)

// ErrAlreadyRunning означает, что эксклюзивная блокировка уже захвачена
// другим процессом: второй экземпляр бота работать с теми же файлами не должен.
var ErrAlreadyRunning = errors.New("бот уже запущен: файл блокировки занят")

// AcquireLock захватывает эксклюзивную advisory-блокировку на pid-файл.
// Блокировка живет, пока жив процесс; при штатном завершении файл убирается
// через ReleaseLock.
func AcquireLock(path string) (*daemon.LockFile, error) {
	lf, err := daemon.OpenLockFile(path, 0o644)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл блокировки %s: %w", path, err)
	}
	if err := lf.Lock(); err != nil {
		_ = lf.Close()
		if errors.Is(err, daemon.ErrWouldBlock) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("не удалось захватить блокировку %s: %w", path, err)
	}
	if err := lf.WritePid(); err != nil {
		_ = lf.Close()
		return nil, fmt.Errorf("не удалось записать pid в %s: %w", path, err)
	}
	return lf, nil
}

// ReleaseLock снимает блокировку и удаляет pid-файл. Ошибки здесь не
// критичны: процесс все равно завершается.
func ReleaseLock(lf *daemon.LockFile) {
	if lf == nil {
		return
	}
	_ = lf.Remove()
}
