package http

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthChecker implementa endpoints de health check
type HealthChecker struct {
	logger       *zap.Logger
	dependencies []Dependency
	timeout      time.Duration
}

// Pinger é qualquer componente capaz de responder a um ping
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency representa um componente do qual o sistema depende
type Dependency struct {
	Name     string
	Check    func(context.Context) error
	Critical bool // Se true, falha deste componente faz o health check falhar
}

// NewHealthChecker cria um health checker com o banco como dependência crítica
// e o cache como não crítica. cache pode ser nil.
func NewHealthChecker(db Pinger, cache Pinger, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		logger:  logger,
		timeout: 5 * time.Second,
	}

	hc.dependencies = append(hc.dependencies, Dependency{
		Name:     "database",
		Check:    db.Ping,
		Critical: true,
	})
	if cache != nil {
		hc.dependencies = append(hc.dependencies, Dependency{
			Name:     "cache",
			Check:    cache.Ping,
			Critical: false,
		})
	}

	return hc
}

// AddDependency registra uma verificação adicional
func (h *HealthChecker) AddDependency(dep Dependency) {
	h.dependencies = append(h.dependencies, dep)
}

// LivenessCheck verifica se o aplicativo está vivo (execução básica)
func (h *HealthChecker) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessCheck verifica se o aplicativo está pronto para receber tráfego
func (h *HealthChecker) ReadinessCheck(c *gin.Context) {
	status, checks := h.runChecks(c.Request.Context(), false)

	c.JSON(status, gin.H{
		"status": statusLabel(status),
		"time":   time.Now(),
		"checks": checks,
	})
}

// DetailedHealth inclui versão, ambiente e estatísticas de runtime
func (h *HealthChecker) DetailedHealth(c *gin.Context) {
	status, checks := h.runChecks(c.Request.Context(), true)

	c.JSON(status, gin.H{
		"status":      statusLabel(status),
		"time":        time.Now(),
		"version":     getVersion(),
		"environment": getEnvironment(),
		"checks":      checks,
		"system":      getSystemInfo(),
	})
}

// runChecks verifica as dependências em paralelo
func (h *HealthChecker) runChecks(parent context.Context, withErrors bool) (int, gin.H) {
	ctx, cancel := context.WithTimeout(parent, h.timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		status = http.StatusOK
		checks = gin.H{}
	)

	for _, dep := range h.dependencies {
		wg.Add(1)
		go func(d Dependency) {
			defer wg.Done()

			start := time.Now()
			err := d.Check(ctx)
			duration := time.Since(start)

			result := gin.H{
				"status":   "UP",
				"time":     duration.String(),
				"critical": d.Critical,
			}
			if err != nil {
				result["status"] = "DOWN"
				if withErrors {
					result["error"] = err.Error()
				}
				h.logger.Error("health check falhou",
					zap.String("dependency", d.Name),
					zap.Error(err))
			}

			mu.Lock()
			defer mu.Unlock()
			checks[d.Name] = result
			if err != nil && d.Critical {
				status = http.StatusServiceUnavailable
			}
		}(dep)
	}

	wg.Wait()
	return status, checks
}

func statusLabel(status int) string {
	if status == http.StatusOK {
		return "UP"
	}
	return "DOWN"
}

// getVersion retorna a versão do aplicativo
func getVersion() string {
	return os.Getenv("APP_VERSION")
}

// getEnvironment retorna o ambiente atual
func getEnvironment() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "development"
	}
	return env
}

// getSystemInfo retorna informações sobre o sistema
func getSystemInfo() gin.H {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return gin.H{
		"go_version":    runtime.Version(),
		"num_cpu":       runtime.NumCPU(),
		"num_goroutine": runtime.NumGoroutine(),
		"alloc_mb":      float64(m.Alloc) / 1024 / 1024,
		"num_gc":        m.NumGC,
	}
}
