package ports

import "context"

// ResultCache define el puerto de salida para cachear resultados ya serializados.
// Cualquier adaptador (Redis, memoria, mock) debe implementar esta interfaz.
type ResultCache interface {
	// GetOrLoad devuelve el valor de key; si no existe ejecuta load y guarda su resultado.
	// Los errores de load no se cachean. hit indica si el valor salió de la caché.
	GetOrLoad(
		ctx context.Context,
		key string,
		load func(ctx context.Context) ([]byte, error),
	) (value []byte, hit bool, err error)
}

